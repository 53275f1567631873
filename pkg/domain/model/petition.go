package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the dimension of the embedding vector.
// Gemini text embeddings are requested at 768 dimensions.
const EmbeddingDimension = 768

// PetitionID is the identifier assigned by the document store
type PetitionID string

// NewPetitionID generates a new UUID v4 PetitionID
func NewPetitionID() PetitionID {
	return PetitionID(uuid.New().String())
}

// Petition is a public interest litigation petition as read from the document store.
// Only Embedding and EmbeddingFingerprint are ever written back by the engine.
type Petition struct {
	ID          PetitionID
	Title       string
	Description string
	Category    string
	Location    string
	CreatedBy   string
	Supporters  int64
	Status      string

	// Embedding is the cached vector for CanonicalText at the time it was computed.
	Embedding []float32
	// EmbeddingFingerprint is Fingerprint(CanonicalText()) when Embedding was computed.
	EmbeddingFingerprint string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanonicalText returns the text that is sent to the embedding model.
// Any change of a contributing field changes the canonical text.
func (p *Petition) CanonicalText() string {
	return CanonicalText(p.Title, p.Description, p.Category, p.Location)
}

// CanonicalText joins the non-empty trimmed fields with newlines
func CanonicalText(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Fingerprint returns the hex encoded SHA-256 of text
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HasFreshEmbedding reports whether the cached embedding can be used as is.
// dimension <= 0 disables the length check.
func (p *Petition) HasFreshEmbedding(dimension int) bool {
	if len(p.Embedding) == 0 || p.EmbeddingFingerprint == "" {
		return false
	}
	if dimension > 0 && len(p.Embedding) != dimension {
		return false
	}
	return p.EmbeddingFingerprint == Fingerprint(p.CanonicalText())
}

// Copy returns a deep copy of the petition
func (p *Petition) Copy() *Petition {
	copied := *p
	if p.Embedding != nil {
		copied.Embedding = make([]float32, len(p.Embedding))
		copy(copied.Embedding, p.Embedding)
	}
	return &copied
}

// SkippedPetition records a petition that was left out of a batch run
type SkippedPetition struct {
	ID     PetitionID
	Reason string
}

// DuplicateMatch is the best matching existing petition for a draft
type DuplicateMatch struct {
	PetitionID PetitionID
	Title      string
	Score      float64
}
