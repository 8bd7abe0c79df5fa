// Package email implements the Email value object.
package email

import (
	"regexp"
	"strings"

	dErrors "ecommerce/pkg/domain-errors"
)

// MaxLength is the RFC 5321 path limit.
const MaxLength = 254

var pattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Email is a syntactically valid address. The zero value is not valid.
type Email struct {
	value string
}

// Parse trims and validates raw. The domain is lowercased; the local part
// keeps its case.
func Parse(raw string) (Email, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Email{}, dErrors.New(dErrors.CodeValidation, "email cannot be blank")
	}
	if len(v) > MaxLength {
		return Email{}, dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	if !pattern.MatchString(v) {
		return Email{}, dErrors.New(dErrors.CodeValidation, "invalid email format: "+v)
	}
	at := strings.LastIndexByte(v, '@')
	return Email{value: v[:at+1] + strings.ToLower(v[at+1:])}, nil
}

// MustParse panics on invalid input. Intended for fixtures.
func MustParse(raw string) Email {
	e, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Email) String() string { return e.value }
func (e Email) IsZero() bool   { return e.value == "" }

// Domain returns the part after '@'.
func (e Email) Domain() string {
	if at := strings.LastIndexByte(e.value, '@'); at >= 0 {
		return e.value[at+1:]
	}
	return ""
}

// LocalPart returns the part before '@'.
func (e Email) LocalPart() string {
	if at := strings.LastIndexByte(e.value, '@'); at >= 0 {
		return e.value[:at]
	}
	return e.value
}

func (e Email) Equal(other Email) bool {
	return e.value == other.value
}
