package livenessHandler

import (
	livenessService "FaceAuthIdP/internal/api/liveness/service"
	"FaceAuthIdP/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type LivenessHandler struct {
	log             *logrus.Logger
	livenessService livenessService.LivenessService
	validator       *validator.Validate
	middleware      middleware.Middleware
}

func New(
	log *logrus.Logger,
	ls livenessService.LivenessService,
	validate *validator.Validate,
	middleware middleware.Middleware) *LivenessHandler {
	return &LivenessHandler{
		log:             log,
		livenessService: ls,
		validator:       validate,
		middleware:      middleware,
	}
}

func (h *LivenessHandler) Start(srv fiber.Router) {
	liveness := srv.Group("/liveness")
	liveness.Post("/session", h.HandleCreateSession)
	liveness.Get("/session/:id", h.HandleGetResult)
}
