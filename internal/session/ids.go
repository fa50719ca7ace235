package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomBase36 returns n upper-case base36 characters taken from the
// random bytes of UUIDs. Bytes 6 and 8 hold the version and variant bits;
// bytes of 252 and above are rejected so every character is equally likely.
func randomBase36(n int) string {
	out := make([]byte, 0, n)
	for len(out) < n {
		u := uuid.New()
		for i, c := range u {
			if i == 6 || i == 8 || c >= 252 {
				continue
			}
			out = append(out, base36[c%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}

// NewID returns a server-side session id: the creation minute in UTC
// (YYYYMMDDHHMM) and six random base36 characters.
func NewID() string {
	return timeNow().UTC().Format("200601021504") + "_" + randomBase36(6)
}

// NewLocalID returns an id for a session that could not be persisted.
// Local ids never collide with server ids.
func NewLocalID() string {
	return "sess_" + strings.ToLower(randomBase36(9))
}

// IsLocalID reports whether id was produced by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, "sess_")
}
