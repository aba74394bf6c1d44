package authHandler

import (
	"FaceAuthIdP/internal/api/auth"
	contextPkg "FaceAuthIdP/pkg/context"
	"FaceAuthIdP/pkg/handlerUtil"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

func (h *AuthHandler) HandleEnroll(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req auth.EnrollRequest
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

	res, err := h.authService.Enroll(c, req, meta)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "enroll")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *AuthHandler) HandleReEnroll(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req auth.ReEnrollRequest
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

	res, err := h.authService.ReEnroll(c, req, meta)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "re_enroll")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
