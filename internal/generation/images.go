package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipeforge/internal/prompts"
	"recipeforge/internal/services"
)

// HTTPImageGenerator posts a rendered prompt to an image service that replies
// with {"url": "..."}.
type HTTPImageGenerator struct {
	endpoint string
	apiKey   string
	template string
	client   *http.Client
}

// NewHTTPImageGenerator builds an image client for endpoint.
func NewHTTPImageGenerator(endpoint, apiKey string, set *prompts.Set, timeout time.Duration) *HTTPImageGenerator {
	if set == nil {
		set = prompts.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPImageGenerator{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		template: set.Generation.Image,
		client:   &http.Client{Timeout: timeout},
	}
}

// GenerateImage requests one step image.
func (g *HTTPImageGenerator) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	prompt, err := prompts.Render("generation.image", g.template, struct {
		Title      string
		StepNumber int
		Text       string
	}{req.RecipeTitle, req.StepNumber, req.Text})
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "images", "render prompt", "", err)
	}
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrTransient, "images", "request", "", err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrExternal, "images", "request",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	var decoded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternal, "images", "decode", "", err)
	}
	if strings.TrimSpace(decoded.URL) == "" {
		return "", services.Wrap(services.ErrExternal, "images", "decode", "empty url", nil)
	}
	return decoded.URL, nil
}
