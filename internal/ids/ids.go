// Package ids generates the prefixed identifiers used for optimizers and
// their snapshots.
package ids

import (
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultLength = 21

const (
	PrefixOptimizer = "opt"
	PrefixSnapshot  = "snap"
)

func New(prefix string) string {
	id, err := nanoid.New(DefaultLength)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

func NewOptimizer() string { return New(PrefixOptimizer) }
func NewSnapshot() string  { return New(PrefixSnapshot) }

// HasPrefix reports whether id was generated with prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_") && len(id) > len(prefix)+1
}
