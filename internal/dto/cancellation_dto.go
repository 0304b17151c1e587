// FILE: internal/dto/cancellation_dto.go
package dto

import "order-cancellation-be/internal/model"

// --- Cancel Order ---

// CancelOrderRequest is the order snapshot a caller submits for
// cancellation. TotalAmount is a pointer so that an omitted amount fails
// validation while an explicit 0 passes.
type CancelOrderRequest struct {
	Id          string   `json:"id" validate:"required"`
	TotalAmount *float64 `json:"totalAmount" validate:"required,gte=0"`
	Status      string   `json:"status,omitempty"`
}

// CancelOrderResponse mirrors the wire contract: the fee travels as "tax"
// and only appears on success.
type CancelOrderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Tax     *float64     `json:"tax,omitempty"`
	Order   *model.Order `json:"order,omitempty"`
}

// --- Eligibility Probe ---

type CanCancelResponse struct {
	CanCancel bool   `json:"canCancel"`
	Message   string `json:"message"`
}
