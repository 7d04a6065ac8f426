// Package server assembles the HTTP surface over the store and the
// completion service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/internal/metrics"
	"github.com/vedyxlabs/vedyx/internal/profile"
	apiv1 "github.com/vedyxlabs/vedyx/server/router/api/v1"
	"github.com/vedyxlabs/vedyx/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	metrics    *metrics.Exporter
}

func NewServer(ctx context.Context, instanceProfile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	llmService, err := newLLMService(instanceProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion service: %w", err)
	}
	llmService.Warmup(ctx)

	exporter := metrics.NewExporter(metrics.DefaultConfig())
	e.GET("/metrics", echo.WrapHandler(exporter.HTTPHandler()))

	apiV1Service := apiv1.NewAPIV1Service(instanceProfile.Secret, instanceProfile, storeInstance, llmService, exporter)
	apiV1Service.RegisterRoutes(e)

	return &Server{
		Profile:    instanceProfile,
		Store:      storeInstance,
		echoServer: e,
		apiV1:      apiV1Service,
		metrics:    exporter,
	}, nil
}

// Start launches the listener in the background. Errors other than a clean
// close are logged, not returned.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.apiV1.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown complete")
}

// newLLMService builds the completion client from the profile. When no
// provider is configured the service still starts, answering every
// completion with an upstream failure instead of refusing to boot.
func newLLMService(p *profile.Profile) (llm.Service, error) {
	if !p.IsLLMEnabled() {
		slog.Warn("no LLM provider configured, completions will fail")
		return unavailableLLM{}, nil
	}
	return llm.NewService(&llm.Config{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		Timeout:     p.LLMTimeout,
		Temperature: &p.LLMTemperature,
	})
}

type unavailableLLM struct{}

func (unavailableLLM) Chat(context.Context, []llm.Message) (string, error) {
	return "", errors.New("no LLM provider configured")
}

func (unavailableLLM) Warmup(context.Context) {}
