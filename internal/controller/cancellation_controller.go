// FILE: internal/controller/cancellation_controller.go
package controller

import (
	"regexp"
	"strconv"

	"order-cancellation-be/internal/dto"
	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	validate = validator.New()

	// Path amounts must be plain decimals with at most two places.
	amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

type ICancellationController interface {
	RegisterRoutes(r fiber.Router)
	Cancel(ctx *fiber.Ctx) error
	CanCancel(ctx *fiber.Ctx) error
}

type cancellationController struct {
	service service.ICancellationService
}

func NewCancellationController(service service.ICancellationService) ICancellationController {
	return &cancellationController{service: service}
}

func (c *cancellationController) RegisterRoutes(r fiber.Router) {
	r.Post("/cancel", c.Cancel)
	r.Get("/can-cancel/:id/:totalAmount", c.CanCancel)
}

// Cancel returns the raw wire shape {success, message, tax?, order?}; older
// consumers predate the response envelope.
func (c *cancellationController) Cancel(ctx *fiber.Ctx) error {
	var req dto.CancelOrderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	status := model.OrderStatus(req.Status)
	if status == "" {
		status = model.OrderStatusPending
	}

	order := &model.Order{
		Id:          req.Id,
		TotalAmount: *req.TotalAmount,
		Status:      status,
	}

	result := c.service.Cancel(ctx.Context(), order, ctx.IP(), ctx.Get("User-Agent"))

	resp := dto.CancelOrderResponse{
		Success: result.Success,
		Message: result.Message,
	}
	if result.Success {
		resp.Tax = result.Fee
		resp.Order = result.Order
	}

	return ctx.JSON(resp)
}

func (c *cancellationController) CanCancel(ctx *fiber.Ctx) error {
	raw := ctx.Params("totalAmount")
	if !amountPattern.MatchString(raw) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "totalAmount must be a non-negative decimal with at most two places",
		})
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "totalAmount is not a valid number"})
	}

	resp := dto.CanCancelResponse{CanCancel: c.service.CanCancel(amount)}
	if resp.CanCancel {
		resp.Message = "Order can be canceled"
	} else {
		resp.Message = "Order cannot be canceled: total amount exceeds the cancellation limit"
	}

	return ctx.JSON(resp)
}
