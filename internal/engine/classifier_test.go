package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

type mtimeScanner struct {
	mtimes []time.Time
}

func (s *mtimeScanner) ModTimes(int64) ([]time.Time, error) {
	return s.mtimes, nil
}

func TestClassifyStickyPaid(t *testing.T) {
	c := engine.NewClassifier(nil)
	// a later snapshot without any paid signal must not demote
	got := c.Classify(model.PaidYes, snapshot.Content{Price: 10})
	assert.Equal(t, model.PaidYes, got)
}

func TestClassifyRemoteFlagAuthoritative(t *testing.T) {
	c := engine.NewClassifier(nil)
	got := c.Classify(model.PaidUnknown, snapshot.Content{Price: 10, Paid: true})
	assert.Equal(t, model.PaidYes, got)
}

func TestClassifyUnpricedIsNotPaid(t *testing.T) {
	c := engine.NewClassifier(nil)
	got := c.Classify(model.PaidUnknown, snapshot.Content{Price: 0})
	assert.Equal(t, model.PaidNo, got)
}

func TestClassifyCorroboratesByFileMtimes(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m1 := created.Add(2 * time.Second)
	m2 := created.Add(5 * time.Second)
	snap := snapshot.Content{
		AuthorID:   8,
		Price:      25,
		MediaCount: 3,
		CreatedAt:  created,
		Media: []snapshot.Media{
			{ID: 1, CreatedAt: &m1},
			{ID: 2, CreatedAt: &m2},
		},
	}

	// three local files whose mtimes match the item and media timestamps
	scanner := &mtimeScanner{mtimes: []time.Time{
		created.Add(500 * time.Millisecond), // same second as the item
		m1,
		m2,
	}}
	c := engine.NewClassifier(scanner)
	assert.Equal(t, model.PaidYes, c.Classify(model.PaidUnknown, snap))
}

func TestClassifyInconclusiveCountKeepsPrior(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := snapshot.Content{
		AuthorID:   8,
		Price:      25,
		MediaCount: 3,
		CreatedAt:  created,
	}

	// only one matching file for three expected media: not enough evidence
	scanner := &mtimeScanner{mtimes: []time.Time{created}}
	c := engine.NewClassifier(scanner)
	assert.Equal(t, model.PaidUnknown, c.Classify(model.PaidUnknown, snap))
	assert.Equal(t, model.PaidNo, c.Classify(model.PaidNo, snap))
}

func TestClassifyNoScannerNeverCorroborates(t *testing.T) {
	c := engine.NewClassifier(nil)
	snap := snapshot.Content{Price: 25, MediaCount: 1, CreatedAt: time.Now()}
	assert.Equal(t, model.PaidUnknown, c.Classify(model.PaidUnknown, snap))
}
