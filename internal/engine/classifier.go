package engine

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

// FileScanner lists modification times of an identity's known local files.
// The classifier uses them to corroborate that priced content was actually
// unlocked when the remote snapshot carries no authoritative paid signal.
type FileScanner interface {
	ModTimes(identityID int64) ([]time.Time, error)
}

// Classifier decides the paid state of posts and messages.  The paid flag is
// sticky: once true it never reverts, so the heuristic is tuned to avoid
// false positives entirely and accept false negatives (a stronger signal can
// arrive later).
type Classifier struct {
	files FileScanner
}

// NewClassifier returns a Classifier.  A nil scanner disables local-file
// corroboration; only authoritative signals then mark content paid.
func NewClassifier(files FileScanner) *Classifier {
	return &Classifier{files: files}
}

// Classify returns the paid state for a content item given its prior state
// and the remote snapshot.  Rules, in order:
//   - a prior true is kept unconditionally;
//   - a remote paid flag is authoritative for true;
//   - priced content with a false remote flag is corroborated against local
//     file mtimes: when the count of files whose mtime exactly matches the
//     item's or any of its media's creation timestamps equals the expected
//     media count, the item is considered unlocked;
//   - otherwise the prior state stands, except that unpriced content is
//     plainly not paid.
func (c *Classifier) Classify(prior model.PaidState, snap snapshot.Content) model.PaidState {
	if prior == model.PaidYes {
		return model.PaidYes
	}
	if snap.Paid {
		return model.PaidYes
	}
	if snap.Price > 0 {
		if c.corroborate(snap) {
			return model.PaidYes
		}
		return prior
	}
	return model.PaidNo
}

// corroborate counts local files whose mtime matches the item's creation
// timestamp or any media creation timestamp, to the second.  Only an exact
// count match against the expected media count is accepted.
func (c *Classifier) corroborate(snap snapshot.Content) bool {
	if c.files == nil || snap.MediaCount <= 0 {
		return false
	}
	mtimes, err := c.files.ModTimes(snap.AuthorID)
	if err != nil || len(mtimes) == 0 {
		return false
	}
	wanted := make(map[int64]struct{}, len(snap.Media)+1)
	wanted[snap.CreatedAt.Truncate(time.Second).Unix()] = struct{}{}
	for _, m := range snap.Media {
		if m.CreatedAt != nil {
			wanted[m.CreatedAt.Truncate(time.Second).Unix()] = struct{}{}
		}
	}
	matches := 0
	for _, mt := range mtimes {
		if _, ok := wanted[mt.Truncate(time.Second).Unix()]; ok {
			matches++
		}
	}
	return matches == snap.MediaCount
}

// DirScanner is the filesystem-backed FileScanner.  It walks the identity's
// download directory, laid out as <root>/<identity id>/.
type DirScanner struct {
	Root string
}

// ModTimes walks the identity's directory and returns every regular file's
// modification time.  A missing directory yields no times and no error.
func (s *DirScanner) ModTimes(identityID int64) ([]time.Time, error) {
	dir := filepath.Join(s.Root, strconv.FormatInt(identityID, 10))
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var mtimes []time.Time
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mtimes = append(mtimes, info.ModTime())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mtimes, nil
}
