package handlerUtil

import (
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/log"
	"FaceAuthIdP/pkg/response"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger     *logrus.Logger
	classifier *pipeline.Classifier
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger:     logger,
		classifier: pipeline.NewClassifier(logger),
	}
}

// Handle funnels every service failure through the classifier so the response
// body and the log line always agree on kind, status and message.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var pErr *pipeline.Error
	if errors.As(err, &pErr) {
		verdict := h.classifier.Classify(err)
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error_kind": string(verdict.Kind),
			"retryable":  verdict.Retryable,
			"path":       path,
			"operation":  operation,
		}).Log(verdict.Level, verdict.OperatorReason)
		return c.Status(verdict.Status).JSON(response.NewErrorBody(string(verdict.Kind), verdict.UserMessage, requestID))
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		kind, message := kindForStatus(respErr.Code)
		return c.Status(respErr.Code).JSON(response.NewErrorBody(kind, message, requestID))
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	verdict := h.classifier.Classify(err)
	return c.Status(verdict.Status).JSON(response.NewErrorBody(string(verdict.Kind), verdict.UserMessage, requestID))
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(
		response.NewErrorBody(string(pipeline.KindInvalidRequest), "잘못된 요청입니다", requestID))
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	requestID, _ := c.Locals("X-Request-ID").(string)
	return c.Status(fiber.StatusRequestTimeout).JSON(
		response.NewErrorBody(string(pipeline.KindTimeoutExceeded), "밝은 곳에서 다시 시도해주세요", requestID))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(
		response.NewErrorBody(string(pipeline.KindUnauthorized), "인증이 필요합니다", requestID))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}

func kindForStatus(code int) (string, string) {
	switch code {
	case fiber.StatusUnauthorized:
		return string(pipeline.KindUnauthorized), "인증이 필요합니다"
	case fiber.StatusTooManyRequests:
		return string(pipeline.KindRateLimited), "너무 많은 시도가 있었습니다. 잠시 후 다시 시도해주세요"
	default:
		return string(pipeline.KindInvalidRequest), "잘못된 요청입니다"
	}
}
