package id

import (
	"strings"

	"github.com/google/uuid"
)

// UUIDGenerator issues random v4 identifiers.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Prefixed issues short, human-readable ids such as INV-1A2B3C4D.
type Prefixed struct {
	Prefix string
}

func (p Prefixed) NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return p.Prefix + strings.ToUpper(raw[:8])
}
