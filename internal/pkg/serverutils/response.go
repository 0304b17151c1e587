// FILE: internal/pkg/serverutils/response.go
package serverutils

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// BaseResponse is the standard envelope for error bodies on the monitoring
// routes and for the panic handler below. Endpoint success shapes are raw:
// the cancellation and monitoring reads serve their own payloads directly
// for client compatibility.
type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorHandlerMiddleware recovers panics from downstream handlers and turns
// them into a generic 500. Internal detail goes to the process log only.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s: %v", ctx.Method(), ctx.Path(), r)
				err = ctx.Status(fiber.StatusInternalServerError).
					JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
			}
		}()
		return ctx.Next()
	}
}
