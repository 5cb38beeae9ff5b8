// Package uuid generates the IDs that tag each poll cycle in the logs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator implements goldprice.IDGenerator with time-ordered UUIDv7 values,
// so cycle IDs sort in the order the cycles ran.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
