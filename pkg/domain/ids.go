// Package domain holds the identifier primitives shared by every aggregate.
//
// Identifiers are opaque strings. Freshly generated ids are random UUIDs;
// ids supplied from outside (path parameters, persisted rows) are accepted as
// opaque values once they pass the trust-boundary checks in parseOpaque.
// Typed ids keep a ProductID from ever being passed where an OrderID belongs.
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "ecommerce/pkg/domain-errors"
)

// MaxIDLength bounds externally supplied identifiers.
const MaxIDLength = 64

type (
	CustomerID string
	ProductID  string
	OrderID    string
)

// NewCustomerID generates a random customer id.
func NewCustomerID() CustomerID { return CustomerID(uuid.NewString()) }

// NewProductID generates a random product id.
func NewProductID() ProductID { return ProductID(uuid.NewString()) }

// NewOrderID generates a random order id.
func NewOrderID() OrderID { return OrderID(uuid.NewString()) }

// ParseCustomerID validates an externally supplied customer id.
func ParseCustomerID(raw string) (CustomerID, error) {
	v, err := parseOpaque("customer id", raw)
	return CustomerID(v), err
}

// ParseProductID validates an externally supplied product id.
func ParseProductID(raw string) (ProductID, error) {
	v, err := parseOpaque("product id", raw)
	return ProductID(v), err
}

// ParseOrderID validates an externally supplied order id.
func ParseOrderID(raw string) (OrderID, error) {
	v, err := parseOpaque("order id", raw)
	return OrderID(v), err
}

func (id CustomerID) String() string { return string(id) }
func (id ProductID) String() string  { return string(id) }
func (id OrderID) String() string    { return string(id) }

func (id CustomerID) IsZero() bool { return id == "" }
func (id ProductID) IsZero() bool  { return id == "" }
func (id OrderID) IsZero() bool    { return id == "" }

// IsGenerated reports whether raw is a well-formed, non-nil UUID, i.e. an id
// that could have come from one of the New* generators.
func IsGenerated(raw string) bool {
	parsed, err := uuid.Parse(raw)
	return err == nil && parsed != uuid.Nil && parsed.String() == strings.ToLower(raw)
}

func parseOpaque(kind, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", dErrors.New(dErrors.CodeValidation, kind+" cannot be blank")
	}
	if len(value) > MaxIDLength {
		return "", dErrors.New(dErrors.CodeValidation, kind+" is too long")
	}
	for _, r := range value {
		if unicode.IsControl(r) || unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) || r == unicode.ReplacementChar {
			return "", dErrors.New(dErrors.CodeValidation, kind+" contains invalid characters")
		}
	}
	return value, nil
}
