package main

import (
	"fmt"

	"github.com/escalateai/api/internal/app"
	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/config"
	"github.com/spf13/cobra"
)

// promptCmd prints the prompt for a complaint without calling any backend
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Validate a complaint and print the model prompt",
	RunE:  runPrompt,
}

// generateCmd runs the full pipeline against the configured backends
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate drafts for a complaint using the configured models",
	Long: `Generate drafts for a complaint using the configured models.

Backends, retry budget and timeouts are read from the same environment
variables (and .env file) as the API server.`,
	RunE: runGenerate,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	req, err := readRequest(requestFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := complaint.Validate(req); err != nil {
		return err
	}

	p := complaint.BuildPrompt(*req)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== system ===")
	fmt.Fprintln(out, p.System)
	fmt.Fprintln(out, "=== user ===")
	fmt.Fprint(out, p.User)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readRequest(requestFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := app.NewService(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	result, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
