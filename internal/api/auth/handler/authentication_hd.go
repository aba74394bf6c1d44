package authHandler

import (
	"FaceAuthIdP/internal/api/auth"
	contextPkg "FaceAuthIdP/pkg/context"
	"FaceAuthIdP/pkg/handlerUtil"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"strings"
	"time"
)

func (h *AuthHandler) HandleLogin(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req auth.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	meta := auth.RequestMeta{
		RequestID: requestID,
		ClientIP:  ctx.IP(),
		UserAgent: ctx.Get("User-Agent"),
	}

	res, err := h.authService.Login(c, req, meta)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "login")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *AuthHandler) HandleEmergency(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req auth.EmergencyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	meta := auth.RequestMeta{
		RequestID: requestID,
		ClientIP:  ctx.IP(),
		UserAgent: ctx.Get("User-Agent"),
	}

	res, err := h.authService.Emergency(c, req, meta)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "emergency_auth")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *AuthHandler) HandleStatus(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	req := auth.StatusRequest{
		SessionID:   ctx.Query("session_id"),
		AccessToken: ctx.Query("access_token"),
		EmployeeID:  ctx.Query("employee_id"),
	}

	if req.AccessToken == "" {
		if header := ctx.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			req.AccessToken = strings.TrimPrefix(header, "Bearer ")
		}
	}

	res, err := h.authService.Status(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "auth_status")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
