// Package server exposes the compiler over HTTP: a health check, operator
// login and the node submission endpoint.
package server

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"flowforge/internal/auth"
	"flowforge/internal/config"
	"flowforge/internal/dispatch"
	"flowforge/internal/resource"
)

// New builds the Fiber app around a wired dispatcher.
func New(cfg *config.Config, d *dispatch.Dispatcher) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authHandler := auth.NewAuthHandler(cfg.Auth, cfg.JWTSecret)
	auth.RegisterAuthRoutes(app, authHandler)

	authMW := auth.AuthMiddleware(cfg.JWTSecret)
	app.Post("/api/nodes", authMW, handleNode(d))

	return app
}

// handleNode accepts one node document and runs it through the
// dispatcher.
func handleNode(d *dispatch.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var node resource.FlowNode
		if err := c.BodyParser(&node); err != nil {
			return dispatch.InvalidPayloadError(err)
		}

		res, err := d.Dispatch(c.Context(), node)
		if err != nil {
			return err
		}
		body := fiber.Map{
			"ok":          true,
			"message":     res.Message,
			"operationId": res.OperationID,
		}
		if len(res.Warnings) > 0 {
			body["warnings"] = res.Warnings
		}
		return c.JSON(body)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *dispatch.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(dispatch.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(dispatch.ErrorResponse{
		Error: &dispatch.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
