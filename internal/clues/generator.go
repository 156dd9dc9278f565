// Package clues asks an external service to write the five clues of a product.
// Generation fails closed: any error yields an empty list and the operator types the clues by hand.
package clues

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caixamisteriosa/internal/domain"
)

const maxResponseBytes = 64 << 10

// Generator produces clues for a product name, hardest first
type Generator interface {
	Generate(ctx context.Context, productName string) []string
}

// Disabled is the generator used when no endpoint is configured
type Disabled struct{}

// Generate always returns an empty list
func (Disabled) Generate(context.Context, string) []string {
	return []string{}
}

type generateRequest struct {
	ProductName string `json:"productName"`
	Count       int    `json:"count"`
}

type generateResponse struct {
	Clues []string `json:"clues"`
}

// HTTPGenerator posts the product name to a JSON endpoint
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPGenerator creates a generator for endpoint; apiKey is sent as a bearer token when set
func NewHTTPGenerator(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Generate returns exactly ClueCount clues, or an empty list on any failure
func (g *HTTPGenerator) Generate(ctx context.Context, productName string) []string {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return []string{}
	}

	clues, err := g.call(ctx, productName)
	if err != nil {
		g.logger.Warn("clue generation failed",
			"product", productName,
			"error", err,
		)
		return []string{}
	}
	return clues
}

func (g *HTTPGenerator) call(ctx context.Context, productName string) ([]string, error) {
	body, err := json.Marshal(generateRequest{ProductName: productName, Count: domain.ClueCount})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	clues := make([]string, 0, len(out.Clues))
	for _, clue := range out.Clues {
		if clue = strings.TrimSpace(clue); clue != "" {
			clues = append(clues, clue)
		}
	}
	if len(clues) != domain.ClueCount {
		return nil, fmt.Errorf("got %d clues, want %d", len(clues), domain.ClueCount)
	}

	return clues, nil
}
