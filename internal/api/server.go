package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/internal/middleware"
	"github.com/parkinsons-variant-viewer/internal/service"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Version is reported by the health endpoint
const Version = "1.0.0"

// VariantStore is the subset of the repository the web layer reads and writes
type VariantStore interface {
	InsertInput(ctx context.Context, input domain.InputVariant) error
	ListInputs(ctx context.Context) ([]domain.InputVariant, error)
	ListVariantRows(ctx context.Context) ([]domain.VariantRow, error)
	CountInputs(ctx context.Context) (int, error)
}

// FileProcessor ingests an uploaded file
type FileProcessor interface {
	HandleFile(ctx context.Context, path string) (service.UploadResult, error)
}

// Dependencies are the collaborators the HTTP handlers call
type Dependencies struct {
	Store     VariantStore
	Uploads   FileProcessor
	Annotator domain.VariantAnnotator
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	cfg := configManager.GetConfig()

	if configManager.IsDevelopment() && cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadSize
	router.SetHTMLTemplate(templates)

	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())

	server := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the UI and API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.GET("/", s.handleIndex)
	s.router.GET("/inputs", s.handleInputs)
	s.router.GET("/add", s.handleAddForm)
	s.router.POST("/add", s.handleAddVariant)
	s.router.POST("/upload", s.handleUpload)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/variants", s.handleListVariants)
		v1.GET("/inputs", s.handleListInputs)
		v1.GET("/annotate", s.handleAnnotate)
	}
}

// handleHealth reports liveness and whether the store answers
func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.deps.Store.CountInputs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC(),
			"version":   Version,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"inputs":    count,
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}
