package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	id "ecommerce/pkg/domain"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/money"
)

// Order is the aggregate root for a purchase. It references the customer and
// products by id only; product data lives in the line snapshots.
//
// Invariants:
//   - CustomerID is set and immutable
//   - Lines can only be added or removed while PENDING
//   - At most one line per ProductID; re-adding merges quantities
//   - All lines share one currency
//   - TotalAmount equals the sum of line subtotals, except after
//     ApplyDiscount, which reduces the cached total directly
//   - Status follows the OrderStatus transition table
type Order struct {
	id             id.OrderID
	customerID     id.CustomerID
	items          []OrderItem
	status         OrderStatus
	totalAmount    money.Money
	createdAt      time.Time
	lastModifiedAt time.Time
}

// NewOrder opens an empty PENDING order with a zero total in currency.
func NewOrder(customerID id.CustomerID, currency string, now time.Time) (*Order, error) {
	if customerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	zero, err := money.New(decimal.Zero, currency)
	if err != nil {
		return nil, err
	}
	return &Order{
		id:             id.NewOrderID(),
		customerID:     customerID,
		status:         OrderStatusPending,
		totalAmount:    zero,
		createdAt:      now,
		lastModifiedAt: now,
	}, nil
}

// RestoreOrder rehydrates persisted state. The stored total is taken as is,
// since it may carry a discount.
func RestoreOrder(
	orderID id.OrderID,
	customerID id.CustomerID,
	items []OrderItem,
	status OrderStatus,
	totalAmount money.Money,
	createdAt, lastModifiedAt time.Time,
) *Order {
	return &Order{
		id:             orderID,
		customerID:     customerID,
		items:          slices.Clone(items),
		status:         status,
		totalAmount:    totalAmount,
		createdAt:      createdAt,
		lastModifiedAt: lastModifiedAt,
	}
}

func (o *Order) ID() id.OrderID            { return o.id }
func (o *Order) CustomerID() id.CustomerID { return o.customerID }
func (o *Order) Status() OrderStatus       { return o.status }
func (o *Order) TotalAmount() money.Money  { return o.totalAmount }
func (o *Order) CreatedAt() time.Time      { return o.createdAt }
func (o *Order) LastModifiedAt() time.Time { return o.lastModifiedAt }
func (o *Order) Items() []OrderItem        { return slices.Clone(o.items) }
func (o *Order) ItemCount() int            { return len(o.items) }
func (o *Order) IsEmpty() bool             { return len(o.items) == 0 }
func (o *Order) Currency() string          { return o.totalAmount.Currency() }

// Clone returns an independent copy, including the line slice.
func (o *Order) Clone() *Order {
	cp := *o
	cp.items = slices.Clone(o.items)
	return &cp
}

// TotalQuantity sums quantities across lines.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.items {
		total += item.Quantity()
	}
	return total
}

func (o *Order) ContainsProduct(productID id.ProductID) bool {
	_, ok := o.Item(productID)
	return ok
}

// Item returns the line for productID.
func (o *Order) Item(productID id.ProductID) (OrderItem, bool) {
	for _, item := range o.items {
		if item.IsSameProduct(productID) {
			return item, true
		}
	}
	return OrderItem{}, false
}

// CanAddItem checks every AddItem precondition without mutating.
func (o *Order) CanAddItem(productID id.ProductID, productName string, unitPrice money.Money, quantity int) error {
	_, err := o.newLine(productID, productName, unitPrice, quantity)
	return err
}

func (o *Order) newLine(productID id.ProductID, productName string, unitPrice money.Money, quantity int) (OrderItem, error) {
	if !o.status.IsModifiable() {
		return OrderItem{}, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot add items to an order in status %s", o.status))
	}
	line, err := NewOrderItem(productID, productName, unitPrice, quantity)
	if err != nil {
		return OrderItem{}, err
	}
	if len(o.items) > 0 && o.items[0].UnitPrice().Currency() != unitPrice.Currency() {
		return OrderItem{}, dErrors.Wrap(money.ErrCurrencyMismatch, dErrors.CodeValidation,
			fmt.Sprintf("order is priced in %s, item is priced in %s", o.items[0].UnitPrice().Currency(), unitPrice.Currency()))
	}
	return line, nil
}

// AddItem appends a line or merges into the existing line for productID.
// A merged line takes the latest name and unit price with the combined
// quantity.
func (o *Order) AddItem(productID id.ProductID, productName string, unitPrice money.Money, quantity int, now time.Time) error {
	line, err := o.newLine(productID, productName, unitPrice, quantity)
	if err != nil {
		return err
	}

	updated := make([]OrderItem, 0, len(o.items)+1)
	merged := false
	for _, existing := range o.items {
		if !existing.IsSameProduct(productID) {
			updated = append(updated, existing)
			continue
		}
		combined, err := NewOrderItem(productID, productName, unitPrice, existing.Quantity()+quantity)
		if err != nil {
			return err
		}
		updated = append(updated, combined)
		merged = true
	}
	if !merged {
		updated = append(updated, line)
	}

	total, err := sumSubtotals(updated, o.totalAmount.Currency())
	if err != nil {
		return err
	}
	o.items = updated
	o.totalAmount = total
	o.lastModifiedAt = now
	return nil
}

// RemoveItem drops the line for productID and returns it.
func (o *Order) RemoveItem(productID id.ProductID, now time.Time) (OrderItem, error) {
	if !o.status.IsModifiable() {
		return OrderItem{}, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot remove items from an order in status %s", o.status))
	}
	idx := slices.IndexFunc(o.items, func(item OrderItem) bool { return item.IsSameProduct(productID) })
	if idx < 0 {
		return OrderItem{}, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("order does not contain product %s", productID))
	}
	removed := o.items[idx]
	updated := slices.Delete(slices.Clone(o.items), idx, idx+1)

	total, err := sumSubtotals(updated, o.totalAmount.Currency())
	if err != nil {
		return OrderItem{}, err
	}
	o.items = updated
	o.totalAmount = total
	o.lastModifiedAt = now
	return removed, nil
}

// ApplyDiscount reduces the cached total by total × rate. Repeated calls
// compound against the already discounted total.
func (o *Order) ApplyDiscount(rate decimal.Decimal, now time.Time) error {
	if !o.status.IsModifiable() {
		return dErrors.New(dErrors.CodeInvariantViolation, "discounts can only be applied to pending orders")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return dErrors.New(dErrors.CodeValidation, "discount rate must be between 0 and 1: "+rate.String())
	}
	discount, err := o.totalAmount.Multiply(rate)
	if err != nil {
		return err
	}
	total, err := o.totalAmount.Subtract(discount)
	if err != nil {
		return err
	}
	o.totalAmount = total
	o.lastModifiedAt = now
	return nil
}

// CanPay checks the payment preconditions without mutating.
func (o *Order) CanPay() error {
	if !o.status.CanBePaid() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("only pending orders can be paid, order is %s", o.status))
	}
	if o.IsEmpty() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot pay for an empty order")
	}
	if o.totalAmount.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot pay for an order with a zero total")
	}
	return nil
}

// Pay moves a non-empty PENDING order to PAID.
func (o *Order) Pay(now time.Time) error {
	if err := o.CanPay(); err != nil {
		return err
	}
	o.transition(OrderStatusPaid, now)
	return nil
}

// Ship moves a PAID order to SHIPPED.
func (o *Order) Ship(now time.Time) error {
	if !o.status.CanBeShipped() {
		return o.illegalTransition("ship")
	}
	o.transition(OrderStatusShipped, now)
	return nil
}

// Deliver moves a SHIPPED order to DELIVERED.
func (o *Order) Deliver(now time.Time) error {
	if !o.status.CanBeDelivered() {
		return o.illegalTransition("deliver")
	}
	o.transition(OrderStatusDelivered, now)
	return nil
}

// Cancel is allowed from PENDING and PAID.
func (o *Order) Cancel(now time.Time) error {
	if !o.status.CanBeCancelled() {
		return o.illegalTransition("cancel")
	}
	o.transition(OrderStatusCancelled, now)
	return nil
}

// Refund is allowed from PAID, SHIPPED and DELIVERED.
func (o *Order) Refund(now time.Time) error {
	if !o.status.CanBeRefunded() {
		return o.illegalTransition("refund")
	}
	o.transition(OrderStatusRefunded, now)
	return nil
}

func (o *Order) transition(to OrderStatus, now time.Time) {
	o.status = to
	o.lastModifiedAt = now
}

func (o *Order) illegalTransition(action string) error {
	return dErrors.New(dErrors.CodeInvariantViolation,
		fmt.Sprintf("cannot %s an order in status %s", action, o.status))
}

// sumSubtotals totals lines in the lines' currency, or returns a zero in
// fallback when there are none.
func sumSubtotals(items []OrderItem, fallback string) (money.Money, error) {
	if len(items) == 0 {
		return money.Zero(fallback), nil
	}
	total := money.Zero(items[0].UnitPrice().Currency())
	for _, item := range items {
		next, err := total.Add(item.Subtotal())
		if err != nil {
			return money.Money{}, err
		}
		total = next
	}
	return total, nil
}
