package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"recipeforge/internal/config"
	"recipeforge/internal/prompts"
	"recipeforge/internal/services"
	"recipeforge/internal/services/llm"
)

const (
	llmCheckTimeout   = 30 * time.Second
	imageCheckTimeout = 5 * time.Second
)

// CheckLLM sends one health completion, without retries, to prove the key
// and model work.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fail(name, "API key missing")
	}
	ctx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(ctx); err != nil {
		return fail(name, describeLLMFailure(err))
	}
	return pass(name, fmt.Sprintf("API reachable (model %s)", cfg.Model))
}

// CheckImageEndpoint probes the step image service with a GET. The service
// only accepts POST, so any answer short of an auth rejection or a 5xx
// counts as reachable.
func CheckImageEndpoint(ctx context.Context, endpoint, apiKey string) Result {
	const name = "Image service"
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fail(name, "missing image_endpoint")
	}
	ctx, cancel := context.WithTimeout(ctx, imageCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(name, fmt.Sprintf("check failed (%v)", err))
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := (&http.Client{Timeout: imageCheckTimeout}).Do(req)
	if err != nil {
		return fail(name, fmt.Sprintf("check failed (%v)", err))
	}
	resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fail(name, "auth failed (invalid api key)")
	case code >= http.StatusInternalServerError:
		return fail(name, fmt.Sprintf("service unhealthy (%d)", code))
	}
	return pass(name, "Reachable")
}

// CheckPrompts loads a prompt override file and compiles its templates.
func CheckPrompts(name, path string) Result {
	if _, err := prompts.Load(path); err != nil {
		return fail(name, err.Error())
	}
	return pass(name, path)
}

// CheckDirectoryAccess requires path to be a directory the daemon can list
// and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail(name, path+" (error: does not exist)")
	case err != nil:
		return fail(name, fmt.Sprintf("%s (error: stat: %v)", path, err))
	case !info.IsDir():
		return fail(name, path+" (error: is not a directory)")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(name, fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err))
	}
	return pass(name, path+" (read/write ok)")
}

func describeLLMFailure(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return "health check timed out (LLM API unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "health check timed out (LLM API unreachable)"
	case errors.Is(err, services.ErrConfiguration):
		return "credentials rejected: " + services.Message(err)
	}
	return err.Error()
}
