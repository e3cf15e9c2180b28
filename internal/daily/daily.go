// internal/daily/daily.go
//
// Daily boards: every "daily" game dealt on the same UTC date shuffles with the
// same seed, so all players of a day face the same layout at each level.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives the shuffle seed for a date as HMAC-SHA256(salt, YYYY-MM-DD),
// first 8 bytes big-endian.
func Seed(date time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
