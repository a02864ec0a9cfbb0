// Package id generates identifiers for sheet sessions.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SheetPrefix prefixes every sheet session ID.
const SheetPrefix = "sheet"

// Generate creates a prefixed NanoID, e.g. "sheet-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system has no entropy available.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewSheetID returns a fresh sheet session ID.
func NewSheetID() (string, error) {
	return Generate(SheetPrefix)
}

// IsSheetID reports whether s looks like an ID from NewSheetID.
func IsSheetID(s string) bool {
	rest, ok := strings.CutPrefix(s, SheetPrefix+"-")
	return ok && len(rest) == 21
}
