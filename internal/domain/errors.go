package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrorKind string

const (
	KindMenuItemNotFound        ErrorKind = "menu_item_not_found"
	KindMenuItemUnavailable     ErrorKind = "menu_item_unavailable"
	KindInvalidOrderKind        ErrorKind = "invalid_order_kind"
	KindInvalidOrderRequest     ErrorKind = "invalid_order_request"
	KindInvalidStatusTransition ErrorKind = "invalid_status_transition"
	KindInsufficientStock       ErrorKind = "insufficient_stock"
	KindTableUnavailable        ErrorKind = "table_unavailable"
	KindTableNotFound           ErrorKind = "table_not_found"
	KindOrderNotFound           ErrorKind = "order_not_found"
	KindCustomerNotFound        ErrorKind = "customer_not_found"
	KindIngredientNotFound      ErrorKind = "ingredient_not_found"
	KindOrderNotCompleted       ErrorKind = "order_not_completed"
	KindPaymentRequired         ErrorKind = "payment_required"
	KindInsufficientPayment     ErrorKind = "insufficient_payment"
	KindConflict                ErrorKind = "conflict"
	KindStorageTimeout          ErrorKind = "storage_timeout"
)

type ErrorClass int

const (
	ClassValidation ErrorClass = iota
	ClassNotFound
	ClassConflict
	ClassInfrastructure
)

func (k ErrorKind) Class() ErrorClass {
	switch k {
	case KindMenuItemNotFound, KindMenuItemUnavailable, KindInvalidOrderKind, KindInvalidOrderRequest,
		KindInvalidStatusTransition, KindInsufficientPayment, KindCustomerNotFound:
		return ClassValidation
	case KindTableNotFound, KindOrderNotFound, KindIngredientNotFound:
		return ClassNotFound
	case KindInsufficientStock, KindTableUnavailable, KindOrderNotCompleted, KindPaymentRequired, KindConflict:
		return ClassConflict
	default:
		return ClassInfrastructure
	}
}

// Error is the structured failure returned by the fulfillment core.
// Callers match on Kind through errors.Is against the Err* sentinels.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]any
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMenuItemNotFound        = &Error{Kind: KindMenuItemNotFound}
	ErrMenuItemUnavailable     = &Error{Kind: KindMenuItemUnavailable}
	ErrInvalidOrderKind        = &Error{Kind: KindInvalidOrderKind}
	ErrInvalidOrderRequest     = &Error{Kind: KindInvalidOrderRequest}
	ErrInvalidStatusTransition = &Error{Kind: KindInvalidStatusTransition}
	ErrInsufficientStock       = &Error{Kind: KindInsufficientStock}
	ErrTableUnavailable        = &Error{Kind: KindTableUnavailable}
	ErrTableNotFound           = &Error{Kind: KindTableNotFound}
	ErrOrderNotFound           = &Error{Kind: KindOrderNotFound}
	ErrCustomerNotFound        = &Error{Kind: KindCustomerNotFound}
	ErrIngredientNotFound      = &Error{Kind: KindIngredientNotFound}
	ErrOrderNotCompleted       = &Error{Kind: KindOrderNotCompleted}
	ErrPaymentRequired         = &Error{Kind: KindPaymentRequired}
	ErrInsufficientPayment     = &Error{Kind: KindInsufficientPayment}
	ErrConflict                = &Error{Kind: KindConflict}
	ErrStorageTimeout          = &Error{Kind: KindStorageTimeout}
)

func NewError(kind ErrorKind, msg string, fields map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Fields: fields}
}

// KindOf extracts the kind of a core error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func MenuItemNotFound(id string) *Error {
	return NewError(KindMenuItemNotFound, "menu item does not exist", map[string]any{"menu_item_id": id})
}

func MenuItemUnavailable(id string) *Error {
	return NewError(KindMenuItemUnavailable, "menu item is not available", map[string]any{"menu_item_id": id})
}

func InvalidOrderKind(kind OrderKind, reason string) *Error {
	return NewError(KindInvalidOrderKind, reason, map[string]any{"kind": string(kind)})
}

func InvalidOrderRequest(reason string) *Error {
	return NewError(KindInvalidOrderRequest, reason, nil)
}

func InvalidStatusTransition(orderID string, from, to OrderStatus) *Error {
	return NewError(KindInvalidStatusTransition, "status change not allowed",
		map[string]any{"order_id": orderID, "from": string(from), "to": string(to)})
}

// StockShortage is the context of an InsufficientStock failure.
type StockShortage struct {
	IngredientID string
	Required     decimal.Decimal
	Available    decimal.Decimal
}

func InsufficientStock(ingredientID string, required, available decimal.Decimal) *Error {
	return NewError(KindInsufficientStock, "not enough stock", map[string]any{
		"ingredient_id": ingredientID,
		"required":      required,
		"available":     available,
	})
}

// ShortageOf returns the shortage carried by an InsufficientStock error.
func ShortageOf(err error) (StockShortage, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindInsufficientStock {
		return StockShortage{}, false
	}
	s := StockShortage{}
	s.IngredientID, _ = e.Fields["ingredient_id"].(string)
	s.Required, _ = e.Fields["required"].(decimal.Decimal)
	s.Available, _ = e.Fields["available"].(decimal.Decimal)
	return s, true
}

func TableUnavailable(tableID string, status TableStatus) *Error {
	return NewError(KindTableUnavailable, "table cannot take orders",
		map[string]any{"table_id": tableID, "status": string(status)})
}

func TableNotFound(id string) *Error {
	return NewError(KindTableNotFound, "table does not exist", map[string]any{"table_id": id})
}

func OrderNotFound(id string) *Error {
	return NewError(KindOrderNotFound, "order does not exist", map[string]any{"order_id": id})
}

func CustomerNotFound(id string) *Error {
	return NewError(KindCustomerNotFound, "customer does not exist", map[string]any{"customer_id": id})
}

func IngredientNotFound(id string) *Error {
	return NewError(KindIngredientNotFound, "ingredient does not exist", map[string]any{"ingredient_id": id})
}

func OrderNotCompleted(tableID, orderID string, status OrderStatus) *Error {
	return NewError(KindOrderNotCompleted, "table has orders still in progress",
		map[string]any{"table_id": tableID, "order_id": orderID, "status": string(status)})
}

func PaymentRequired(orderID string) *Error {
	return NewError(KindPaymentRequired, "order has no recorded payment", map[string]any{"order_id": orderID})
}

func InsufficientPayment(orderID string, due, paid decimal.Decimal) *Error {
	return NewError(KindInsufficientPayment, "amount paid is below the order total",
		map[string]any{"order_id": orderID, "due": due, "paid": paid})
}

func Conflict(msg string, fields map[string]any) *Error {
	return NewError(KindConflict, msg, fields)
}

func StorageTimeout(op string, err error) *Error {
	return &Error{Kind: KindStorageTimeout, Message: "store did not answer in time", Fields: map[string]any{"op": op}, Err: err}
}
