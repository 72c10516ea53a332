package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ReferenceLength is the fixed length of every application and contract reference.
const ReferenceLength = 32

var (
	ErrInvalidReference   = errors.New("invalid sequential reference")
	ErrReferenceExhausted = errors.New("sequential reference space exhausted")
)

// FirstReference is the reference assigned when no previous reference exists.
var FirstReference = strings.Repeat("A", ReferenceLength)

// NextReference returns the reference following prev.
//
// A nil prev yields FirstReference. Otherwise the rightmost character that is
// not 'Z' is advanced by one letter and every other position is kept as is.
func NextReference(prev *string) (string, error) {
	if prev == nil {
		return FirstReference, nil
	}

	ref := []byte(*prev)
	if len(ref) != ReferenceLength {
		return "", fmt.Errorf("%w: length %d, want %d", ErrInvalidReference, len(ref), ReferenceLength)
	}
	for i, c := range ref {
		if c < 'A' || c > 'Z' {
			return "", fmt.Errorf("%w: character %q at position %d", ErrInvalidReference, c, i)
		}
	}

	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] != 'Z' {
			ref[i]++
			return string(ref), nil
		}
	}
	return "", ErrReferenceExhausted
}
