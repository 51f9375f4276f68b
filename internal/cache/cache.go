package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for result caching.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// SubmissionKey generates a cache key for a verification submission. The
// digest covers the input kind and the payload so identical claims hit the
// same entry regardless of how they were staged.
func SubmissionKey(inputType string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(inputType))
	h.Write([]byte{0})
	h.Write(payload)
	return "verihub:v1:" + hex.EncodeToString(h.Sum(nil))
}
