package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/email"
)

// MaxNameLength bounds the trimmed display name, counted in characters.
const MaxNameLength = 50

// Customer is the aggregate root for a buyer.
//
// Invariants:
//   - Name is non-blank after trimming and at most 50 characters
//   - Email is a valid address
//   - Name and email cannot change while the customer is inactive
//   - Type only moves upward, REGULAR → VIP, through UpgradeToVip
//   - Activate/Deactivate reject calls that would not change state
//   - CreatedAt is immutable after construction
type Customer struct {
	id             id.CustomerID
	name           string
	email          email.Email
	customerType   CustomerType
	active         bool
	createdAt      time.Time
	lastModifiedAt time.Time
}

// NewCustomer registers a new, active customer with a fresh id.
func NewCustomer(name string, addr email.Email, customerType CustomerType, now time.Time) (*Customer, error) {
	n, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !customerType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid customer type: "+string(customerType))
	}
	return &Customer{
		id:             id.NewCustomerID(),
		name:           n,
		email:          addr,
		customerType:   customerType,
		active:         true,
		createdAt:      now,
		lastModifiedAt: now,
	}, nil
}

// RestoreCustomer rehydrates persisted state. No business rules are checked.
func RestoreCustomer(
	customerID id.CustomerID,
	name string,
	addr email.Email,
	customerType CustomerType,
	active bool,
	createdAt, lastModifiedAt time.Time,
) *Customer {
	return &Customer{
		id:             customerID,
		name:           name,
		email:          addr,
		customerType:   customerType,
		active:         active,
		createdAt:      createdAt,
		lastModifiedAt: lastModifiedAt,
	}
}

func (c *Customer) ID() id.CustomerID         { return c.id }
func (c *Customer) Name() string              { return c.name }
func (c *Customer) Email() email.Email        { return c.email }
func (c *Customer) Type() CustomerType        { return c.customerType }
func (c *Customer) IsActive() bool            { return c.active }
func (c *Customer) CreatedAt() time.Time      { return c.createdAt }
func (c *Customer) LastModifiedAt() time.Time { return c.lastModifiedAt }

// Clone returns an independent copy. Stores hand out clones so callers never
// share a live aggregate.
func (c *Customer) Clone() *Customer {
	cp := *c
	return &cp
}

// UpdateInfo replaces name and email. Inactive customers are frozen.
func (c *Customer) UpdateInfo(name string, addr email.Email, now time.Time) error {
	if !c.active {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot update an inactive customer")
	}
	n, err := validateName(name)
	if err != nil {
		return err
	}
	if addr.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	c.name = n
	c.email = addr
	c.lastModifiedAt = now
	return nil
}

// CanUpgradeToVip checks the upgrade preconditions without mutating.
func (c *Customer) CanUpgradeToVip() error {
	if !c.active {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot upgrade an inactive customer")
	}
	if c.customerType == CustomerTypeVIP {
		return dErrors.New(dErrors.CodeInvariantViolation, "customer is already VIP")
	}
	if c.customerType.rank() > CustomerTypeVIP.rank() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot downgrade "+string(c.customerType)+" customer to VIP")
	}
	return nil
}

// UpgradeToVip moves a REGULAR customer to VIP.
func (c *Customer) UpgradeToVip(now time.Time) error {
	if err := c.CanUpgradeToVip(); err != nil {
		return err
	}
	c.customerType = CustomerTypeVIP
	c.lastModifiedAt = now
	return nil
}

// Deactivate fails if the customer is already inactive.
func (c *Customer) Deactivate(now time.Time) error {
	if !c.active {
		return dErrors.New(dErrors.CodeInvariantViolation, "customer is already inactive")
	}
	c.active = false
	c.lastModifiedAt = now
	return nil
}

// Activate fails if the customer is already active.
func (c *Customer) Activate(now time.Time) error {
	if c.active {
		return dErrors.New(dErrors.CodeInvariantViolation, "customer is already active")
	}
	c.active = true
	c.lastModifiedAt = now
	return nil
}

// CanReceiveDiscount is true for active customers in a discount-eligible tier.
func (c *Customer) CanReceiveDiscount() bool {
	return c.active && c.customerType.IsDiscountEligible()
}

func validateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", dErrors.New(dErrors.CodeValidation, "customer name cannot be blank")
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		return "", dErrors.New(dErrors.CodeValidation, "customer name must be 50 characters or less")
	}
	return n, nil
}
