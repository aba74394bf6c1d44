package config

import (
	"FaceAuthIdP/database/postgres"
	"FaceAuthIdP/internal/api/auth"
	authHandler "FaceAuthIdP/internal/api/auth/handler"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	authService "FaceAuthIdP/internal/api/auth/service"
	livenessHandler "FaceAuthIdP/internal/api/liveness/handler"
	livenessService "FaceAuthIdP/internal/api/liveness/service"
	"FaceAuthIdP/internal/middleware"
	"FaceAuthIdP/pkg/cognito"
	"FaceAuthIdP/pkg/directory"
	"FaceAuthIdP/pkg/redis"
	"FaceAuthIdP/pkg/rekognition"
	"FaceAuthIdP/pkg/s3"
	"FaceAuthIdP/pkg/textract"
	"FaceAuthIdP/pkg/utils"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"os"
)

type ServerOption func(*Server) error

type Server struct {
	engine            *fiber.App
	db                *sqlx.DB
	log               *logrus.Logger
	middleware        middleware.Middleware
	validator         *validator.Validate
	utils             utils.IUtils
	handlers          []handler
	redisServer       redis.IRedis
	s3Client          s3.ItfS3
	rekognitionClient rekognition.ItfRekognition
	textractClient    textract.ItfTextract
	cognitoClient     cognito.ItfCognito
	directoryClient   directory.ItfDirectory
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithRekognitionClient() ServerOption {
	return func(s *Server) error {
		client, err := rekognition.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize Rekognition client: %v", err)
			}
			return fmt.Errorf("failed to create Rekognition client: %w", err)
		}
		s.rekognitionClient = client
		return nil
	}
}

func WithTextractClient() ServerOption {
	return func(s *Server) error {
		client, err := textract.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize Textract client: %v", err)
			}
			return fmt.Errorf("failed to create Textract client: %w", err)
		}
		s.textractClient = client
		return nil
	}
}

func WithCognitoClient() ServerOption {
	return func(s *Server) error {
		client, err := cognito.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize Cognito client: %v", err)
			}
			return fmt.Errorf("failed to create Cognito client: %w", err)
		}
		s.cognitoClient = client
		return nil
	}
}

func WithDirectoryClient() ServerOption {
	return func(s *Server) error {
		s.directoryClient = directory.New()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	cfg := auth.LoadConfig()

	// Auth Domain
	authRepo := authRepository.New(s.db, s.log)
	authServices := authService.New(s.log, cfg, authRepo, s.rekognitionClient, s.textractClient, s.directoryClient, s.cognitoClient, s.s3Client, s.redisServer, s.utils)
	authHandlers := authHandler.New(s.log, authServices, s.validator, s.middleware)

	// Liveness Domain
	livenessServices := livenessService.New(s.log, cfg, authRepo, s.rekognitionClient)
	livenessHandlers := livenessHandler.New(s.log, livenessServices, s.validator, s.middleware)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, authHandlers, livenessHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
