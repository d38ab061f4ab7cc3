package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyNamespace scopes the name-based uuids derived for catalog and import rows
var KeyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:lotledger:idempotency"))

// DeriveKey returns a uuid v5 over the given identity fields. Equal fields
// always yield the same key.
func DeriveKey(kind string, fields ...string) string {
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, kind)
	for _, f := range fields {
		parts = append(parts, strings.TrimSpace(f))
	}
	return uuid.NewSHA1(KeyNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// VarianceKey identifies a variance by sku, name and channel, ignoring case
func VarianceKey(skuCode, name, channel string) string {
	return DeriveKey("variance", skuCode, strings.ToLower(strings.TrimSpace(name)), strings.ToLower(strings.TrimSpace(channel)))
}

// NoteKey identifies a note by subject, text and creation time
func NoteKey(subjectID, text string, createdAt time.Time) string {
	stamp := ""
	if !createdAt.IsZero() {
		stamp = createdAt.UTC().Format(time.RFC3339Nano)
	}
	return DeriveKey("note", subjectID, text, stamp)
}
