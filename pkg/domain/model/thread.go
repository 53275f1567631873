package model

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ThreadID is a UUID-based identifier for Thread
type ThreadID string

// NewThreadID generates a new UUID v4 ThreadID
func NewThreadID() ThreadID {
	return ThreadID(uuid.New().String())
}

// Thread is a unified issue thread: a cluster of mutually similar petitions
// with a generated label and summary. Threads are derived data and can be
// discarded and recomputed at any time.
type Thread struct {
	ID ThreadID
	// MemberKey identifies the member set independent of member order
	MemberKey       string
	PetitionIDs     []PetitionID
	Label           string
	Summary         string
	PetitionCount   int
	TotalSupporters int64
	// Fallback is true when Label and Summary were not produced by the summarizer
	Fallback  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ThreadSummary is the label and summary generated for a cluster
type ThreadSummary struct {
	Label   string
	Summary string
}

// MemberKey returns the hex SHA-256 over the sorted ids
func MemberKey(ids []PetitionID) string {
	sorted := make([]string, len(ids))
	for i, id := range ids {
		sorted[i] = string(id)
	}
	slices.Sort(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

// Copy returns a deep copy of the thread
func (t *Thread) Copy() *Thread {
	copied := *t
	copied.PetitionIDs = slices.Clone(t.PetitionIDs)
	return &copied
}
