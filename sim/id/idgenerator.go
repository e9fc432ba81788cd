// Package id issues the identities that make messages, nodes, buffers and
// channels distinguishable from one another.
package id

import (
	"sync"

	"github.com/google/uuid"
)

// ID is an opaque identity. Two IDs are the same entity if and only if they
// compare equal with ==. IDs carry no ordering.
type ID struct {
	value uuid.UUID
}

// Nil is the zero ID. No generator ever returns it.
var Nil = ID{}

// New issues a fresh ID from the default generator.
func New() ID {
	return Default().Generate()
}

// String returns the canonical textual form of the ID.
func (i ID) String() string {
	return i.value.String()
}

// IsNil returns true if the ID has never been issued by a generator.
func (i ID) IsNil() bool {
	return i.value == uuid.Nil
}

// Generator can generate IDs.
type Generator interface {
	// Generate returns an ID that differs from every other ID issued in the
	// process.
	Generate() ID
}

var (
	defaultGeneratorOnce sync.Once
	defaultGenerator     Generator
)

// Default returns the generator used by constructors across the module.
func Default() Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = NewGenerator()
	})

	return defaultGenerator
}

// NewGenerator returns a generator that issues random version-4 UUIDs.
func NewGenerator() Generator {
	return randomGenerator{}
}

type randomGenerator struct{}

func (randomGenerator) Generate() ID {
	return ID{value: uuid.New()}
}

// Identifiable is anything that carries an ID.
type Identifiable interface {
	ID() ID
}

// Same returns true if both objects carry the same ID. Nothing besides the
// ID takes part in the comparison.
func Same(a, b Identifiable) bool {
	return a.ID() == b.ID()
}

// Base is an embeddable implementation of Identifiable.
type Base struct {
	id ID
}

// MakeBase creates a Base with a freshly generated ID.
func MakeBase() Base {
	return Base{id: New()}
}

// MakeBaseWithID creates a Base that reuses an existing ID.
func MakeBaseWithID(i ID) Base {
	return Base{id: i}
}

// ID returns the identity.
func (b Base) ID() ID {
	return b.id
}
