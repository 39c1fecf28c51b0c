// Package fingerprint derives stable identities for feed entries.
//
// The fingerprint is the primary key of the item store. It must be
// reproducible across runs so that an entry seen twice maps to the same
// row, and it must change when a publisher re-issues an article under
// the same link with a new publication time.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// New computes the fingerprint for a feed entry from its link and
// publication time. The published time is normalized to UTC before
// hashing so that equal instants in different zones hash identically.
// When the feed omits the publication time (zero value), the link alone
// identifies the entry.
func New(link string, publishedAt time.Time) string {
	material := link
	if !publishedAt.IsZero() {
		material = link + "|" + publishedAt.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
