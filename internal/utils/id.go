package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// GenerateID returns a run id made of the UTC start time and four random
// bytes, e.g. "20260102T150405-1a2b3c4d". Ids sort by start time.
func GenerateID() string {
	return idAt(time.Now())
}

func idAt(t time.Time) string {
	b := make([]byte, 4)
	suffix := "00000000"
	if _, err := rand.Read(b); err == nil {
		suffix = hex.EncodeToString(b)
	}
	return t.UTC().Format("20060102T150405") + "-" + suffix
}
