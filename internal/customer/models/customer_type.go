package models

import (
	"strings"

	dErrors "ecommerce/pkg/domain-errors"
)

// CustomerType tiers customers for pricing. Only VIP and ENTERPRISE are
// eligible for discounts.
type CustomerType string

const (
	CustomerTypeRegular    CustomerType = "REGULAR"
	CustomerTypeVIP        CustomerType = "VIP"
	CustomerTypeEnterprise CustomerType = "ENTERPRISE"
)

var validCustomerTypes = map[CustomerType]bool{
	CustomerTypeRegular:    true,
	CustomerTypeVIP:        true,
	CustomerTypeEnterprise: true,
}

// ParseCustomerType accepts a type name case-insensitively.
func ParseCustomerType(s string) (CustomerType, error) {
	t := CustomerType(strings.ToUpper(strings.TrimSpace(s)))
	if t == "" {
		return "", dErrors.New(dErrors.CodeValidation, "customer type is required")
	}
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid customer type: "+s)
	}
	return t, nil
}

func (t CustomerType) IsValid() bool {
	return validCustomerTypes[t]
}

// IsDiscountEligible reports whether the tier qualifies for a discount at all.
func (t CustomerType) IsDiscountEligible() bool {
	return t == CustomerTypeVIP || t == CustomerTypeEnterprise
}

// rank orders tiers for the no-downgrade rule.
func (t CustomerType) rank() int {
	switch t {
	case CustomerTypeVIP:
		return 1
	case CustomerTypeEnterprise:
		return 2
	default:
		return 0
	}
}

func (t CustomerType) String() string {
	return string(t)
}
