// Package validation screens user-supplied free text before it is stored
// and later rendered in browsers and exported reports.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
)

// MaxAnnotationLength bounds comments, restrictions and thread comments.
const MaxAnnotationLength = 5000

// CheckAnnotation rejects text that is too long, not valid UTF-8, or that
// libinjection recognises as an XSS payload. field names the input in the
// returned error. Errors wrap apperrors.ErrUnsafeContent or
// apperrors.ErrInvalidInput.
func CheckAnnotation(field, text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%s is not valid UTF-8: %w", field, apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxAnnotationLength {
		return fmt.Errorf("%s exceeds %d characters: %w", field, MaxAnnotationLength, apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if libinjection.IsXSS(text) {
		return fmt.Errorf("%s contains markup that is not allowed: %w", field, apperrors.ErrUnsafeContent)
	}
	return nil
}
