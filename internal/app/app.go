// Package app wires configuration into the generation service shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/escalateai/api/internal/config"
	"github.com/escalateai/api/internal/generation"
	"github.com/escalateai/api/internal/llm"
	"go.uber.org/zap"
)

// Backends builds the primary and fallback backends described by cfg
func Backends(ctx context.Context, cfg *config.Config, httpClient *http.Client) (primary, fallback llm.Backend, err error) {
	primary, err = llm.New(ctx, cfg.BackendPrimary(), httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("primary backend: %w", err)
	}
	fallback, err = llm.New(ctx, cfg.BackendFallback(), httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("fallback backend: %w", err)
	}
	return primary, fallback, nil
}

// NewService builds the generation service for cfg
func NewService(ctx context.Context, cfg *config.Config, logger *zap.Logger, invOpts []generation.Option, svcOpts ...generation.ServiceOption) (*generation.Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	primary, fallback, err := Backends(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}

	for name, bc := range map[string]llm.Config{"primary": cfg.BackendPrimary(), "fallback": cfg.BackendFallback()} {
		if !bc.Configured() {
			logger.Warn("backend has no api key; its attempts will fail",
				zap.String("backend", name),
				zap.String("provider", bc.Provider),
				zap.String("model", bc.Model),
			)
		}
	}

	opts := append([]generation.Option{generation.WithLogger(logger)}, invOpts...)
	inv := generation.NewInvoker(cfg.InvokerConfig(), primary, fallback, opts...)
	return generation.NewService(inv, logger, svcOpts...), nil
}
