package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// DraftPrefix marks draft identifiers so they are recognisable in URLs and logs.
const DraftPrefix = "draft_"

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as storage keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewDraftID returns a draft identifier of the form draft_<ulid>.
func NewDraftID() string {
	return DraftPrefix + New()
}
