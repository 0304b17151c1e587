package model

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Order is the minimal view of an order this service needs to decide
// cancellation eligibility. The order of record lives upstream; we only
// receive a snapshot per request.
type Order struct {
	Id          string      `json:"id"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
}

// IsCanceled reports whether the order already reached the canceled state.
func (o *Order) IsCanceled() bool {
	return o.Status == OrderStatusCanceled
}

// CancellationResult is the outcome of a cancellation attempt.
// Fee is set only on success, FailureReason only on failure.
type CancellationResult struct {
	Success       bool
	Message       string
	Fee           *float64
	FailureReason string
	Order         *Order
}

// Failure reasons recorded on rejected attempts. The exact strings are
// wire-visible: they ride failure_reason into the log store and back out
// through the log lists and topFailureReason.
const (
	FailureReasonAmountAboveLimit = "amount above limit"
	FailureReasonAlreadyCanceled  = "already cancelled"
)
