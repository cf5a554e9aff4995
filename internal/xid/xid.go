// Package xid generates prefixed identifiers for store records, e.g.
// "rcpt-1756600000000000000-9f2ab4c1d0e3f4a5". The timestamp component
// keeps ids roughly creation-ordered and readable in logs; the random
// suffix disambiguates ids minted in the same nanosecond.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a fresh identifier carrying the given prefix. If the random
// source fails the id degrades to prefix plus timestamp only.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
