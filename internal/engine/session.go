package engine

import (
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/utils"
)

// sessionExpired reports whether the snapshot's session material is known to
// be past its expiry.  Cookie-based sessions carry no readable expiry and
// never count as expired here.
func sessionExpired(info snapshot.CredentialInfo, now time.Time) bool {
	if info.Authorization == nil {
		return false
	}
	return utils.SessionExpired(*info.Authorization, now)
}
