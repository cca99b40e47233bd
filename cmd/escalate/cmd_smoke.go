package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/escalateai/api/internal/models"
	"github.com/spf13/cobra"
)

var baseURL string

// smokeCmd exercises a running API end to end
var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Check /health and POST a sample complaint to a running API",
	RunE:  runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "Base URL of the API")
}

var sampleRequest = models.ComplaintRequest{
	Category:          models.CategoryEcommerceRefund,
	Tone:              models.ToneFirm,
	Title:             "Delayed refund for order #12345",
	Description:       "I returned the item three weeks ago and the refund has still not been credited.",
	DesiredResolution: "Full refund within 7 days",
}

func runSmoke(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	base := strings.TrimRight(baseURL, "/")
	out := cmd.OutOrStdout()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	health, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d: %s", resp.StatusCode, health)
	}
	fmt.Fprintf(out, "health: %s\n", bytes.TrimSpace(health))

	body, err := json.Marshal(sampleRequest)
	if err != nil {
		return err
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, base+"/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generate: status %d: %s", resp.StatusCode, data)
	}

	var result models.GenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if result.RequestID == "" || result.EmailBody == "" {
		return fmt.Errorf("generate: incomplete result: %s", data)
	}

	fmt.Fprintf(out, "generated %s (placeholders: %v)\n", result.RequestID, result.RequiredPlaceholders)
	return nil
}
