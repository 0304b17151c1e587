package mapper

import (
	"order-cancellation-be/internal/dto"
	"order-cancellation-be/internal/model"
)

type AttemptRecordMapper struct{}

func NewAttemptRecordMapper() *AttemptRecordMapper {
	return &AttemptRecordMapper{}
}

func (m *AttemptRecordMapper) ToResponse(r *model.CancellationAttemptRecord) *dto.AttemptRecordResponse {
	if r == nil {
		return nil
	}
	return &dto.AttemptRecordResponse{
		OrderId:       r.OrderId,
		Amount:        r.Amount,
		OrderStatus:   string(r.OrderStatus),
		Success:       r.Success,
		Message:       r.Message,
		Fee:           r.Fee,
		FailureReason: r.FailureReason,
		ClientIP:      r.ClientIP,
		UserAgent:     r.UserAgent,
		Timestamp:     r.Timestamp,
	}
}

func (m *AttemptRecordMapper) ToResponseList(records []*model.CancellationAttemptRecord) []dto.AttemptRecordResponse {
	out := make([]dto.AttemptRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, *m.ToResponse(r))
	}
	return out
}
