package authHandler

import (
	authService "FaceAuthIdP/internal/api/auth/service"
	"FaceAuthIdP/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	log         *logrus.Logger
	authService authService.AuthService
	validator   *validator.Validate
	middleware  middleware.Middleware
}

func New(
	log *logrus.Logger,
	as authService.AuthService,
	validate *validator.Validate,
	middleware middleware.Middleware) *AuthHandler {
	return &AuthHandler{
		log:         log,
		authService: as,
		validator:   validate,
		middleware:  middleware,
	}
}

func (h *AuthHandler) Start(srv fiber.Router) {
	auth := srv.Group("/auth")
	auth.Post("/enroll", h.HandleEnroll)
	auth.Post("/login", h.HandleLogin)
	auth.Post("/emergency", h.middleware.NewRateLimiter, h.HandleEmergency)
	auth.Post("/re-enroll", h.HandleReEnroll)
	auth.Get("/status", h.HandleStatus)
}
