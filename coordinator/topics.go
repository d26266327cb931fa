package coordinator

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

var defaultTopicSets = [][]string{
	{"Main Points", "Key Features", "Overview", "Details", "Summary"},
	{"Introduction", "Content", "Examples", "Applications", "References"},
	{"Basic Concepts", "Core Ideas", "Implementation", "Usage", "Resources"},
	{"Getting Started", "Key Topics", "Best Practices", "Tips", "Guide"},
	{"Overview", "Fundamentals", "Examples", "Methods", "Related Topics"},
}

// DefaultTopics picks a canned topic set. The same key always gets the
// same set.
func DefaultTopics(key string) []string {
	sum := sha256.Sum256([]byte(key))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(defaultTopicSets))
	return append([]string(nil), defaultTopicSets[idx]...)
}

// Fingerprint derives a cache key from the parts of a request.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}
