package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"recipeforge/internal/api"
	"recipeforge/internal/collections"
	"recipeforge/internal/content"
	"recipeforge/internal/generation"
	"recipeforge/internal/translation"
)

// Health reports daemon liveness and queue depth.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGenerateJob submits a batch of recipe names.
func (c *Client) CreateGenerateJob(ctx context.Context, req generation.CreateRequest) (*generation.CreateResult, error) {
	var out generation.CreateResult
	if err := c.do(ctx, http.MethodPost, "/generate-jobs", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGenerateJobs lists generation jobs, optionally filtered by status.
func (c *Client) ListGenerateJobs(ctx context.Context, statuses ...string) ([]*content.GenerateJob, error) {
	var out []*content.GenerateJob
	err := c.do(ctx, http.MethodGet, "/generate-jobs", statusQuery(statuses), nil, &out)
	return out, err
}

// GetGenerateJob fetches one generation job.
func (c *Client) GetGenerateJob(ctx context.Context, id string) (*content.GenerateJob, error) {
	var out content.GenerateJob
	if err := c.do(ctx, http.MethodGet, "/generate-jobs/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ControlGenerateJob applies start, pause, resume or cancel.
func (c *Client) ControlGenerateJob(ctx context.Context, id, action string) (*content.GenerateJob, error) {
	var out content.GenerateJob
	path := "/generate-jobs/" + url.PathEscape(id) + "/" + url.PathEscape(action)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTranslationJob creates or returns the active job for a tuple.
func (c *Client) CreateTranslationJob(ctx context.Context, req translation.CreateRequest) (*translation.CreateResult, error) {
	var out translation.CreateResult
	if err := c.do(ctx, http.MethodPost, "/translation-jobs", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTranslationBatch creates jobs for many entities at once.
func (c *Client) CreateTranslationBatch(ctx context.Context, req translation.BatchRequest) (*translation.BatchResult, error) {
	var out translation.BatchResult
	if err := c.do(ctx, http.MethodPost, "/translation-jobs/batch", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TranslationFilter narrows ListTranslationJobs.
type TranslationFilter struct {
	EntityType string
	EntityID   string
	Lang       string
	Statuses   []string
	Limit      int
}

// ListTranslationJobs lists jobs in dequeue order.
func (c *Client) ListTranslationJobs(ctx context.Context, filter TranslationFilter) ([]*content.TranslationJob, error) {
	query := statusQuery(filter.Statuses)
	for key, value := range map[string]string{
		"entityType": filter.EntityType,
		"entityId":   filter.EntityID,
		"lang":       filter.Lang,
	} {
		if value != "" {
			query.Set(key, value)
		}
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	var out []*content.TranslationJob
	err := c.do(ctx, http.MethodGet, "/translation-jobs", query, nil, &out)
	return out, err
}

// GetTranslationJob fetches one translation job.
func (c *Client) GetTranslationJob(ctx context.Context, id string) (*content.TranslationJob, error) {
	var out content.TranslationJob
	if err := c.do(ctx, http.MethodGet, "/translation-jobs/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunTranslationJob runs a pending job in sync or async mode.
func (c *Client) RunTranslationJob(ctx context.Context, id, mode string) (*content.TranslationJob, error) {
	var out content.TranslationJob
	path := "/translation-jobs/" + url.PathEscape(id) + "/run"
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"mode": mode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunPendingTranslations dispatches up to limit due pending jobs.
func (c *Client) RunPendingTranslations(ctx context.Context, limit int) (int, error) {
	var out struct {
		Dispatched int `json:"dispatched"`
	}
	if err := c.do(ctx, http.MethodPost, "/translation-jobs/run-pending", nil, map[string]int{"limit": limit}, &out); err != nil {
		return 0, err
	}
	return out.Dispatched, nil
}

// ControlTranslationJob applies retry, cancel or prioritize.
func (c *Client) ControlTranslationJob(ctx context.Context, id, action string, priority int) (*content.TranslationJob, error) {
	var out content.TranslationJob
	path := "/translation-jobs/" + url.PathEscape(id) + "/" + url.PathEscape(action)
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]int{"priority": priority}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCollections lists collections, optionally filtered by status.
func (c *Client) ListCollections(ctx context.Context, status string) ([]*content.Collection, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var out []*content.Collection
	err := c.do(ctx, http.MethodGet, "/collections", query, nil, &out)
	return out, err
}

// GetCollection fetches one collection.
func (c *Client) GetCollection(ctx context.Context, id string) (*content.Collection, error) {
	var out content.Collection
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewCollection is the body of a collection create call. Rule is wire JSON.
type NewCollection struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Rule        json.RawMessage `json:"rule,omitempty"`
	CuisineID   string          `json:"cuisineId,omitempty"`
	LocationID  string          `json:"locationId,omitempty"`
	MinRequired int             `json:"minRequired,omitempty"`
	TargetCount int             `json:"targetCount,omitempty"`
}

// CreateCollection creates a draft collection.
func (c *Client) CreateCollection(ctx context.Context, req NewCollection) (*content.Collection, error) {
	var out content.Collection
	if err := c.do(ctx, http.MethodPost, "/collections", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Curate pins, unpins, excludes or includes recipes on a collection.
func (c *Client) Curate(ctx context.Context, id, action string, recipeIDs []string) (*content.Collection, error) {
	var out content.Collection
	path := "/collections/" + url.PathEscape(id) + "/" + url.PathEscape(action)
	body := map[string][]string{"recipeIds": recipeIDs}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Members lists the recipes a collection currently selects.
func (c *Client) Members(ctx context.Context, id string, publishedOnly bool, limit int) ([]*content.Recipe, error) {
	query := url.Values{}
	if publishedOnly {
		query.Set("published", "true")
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []*content.Recipe
	err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(id)+"/recipes", query, nil, &out)
	return out, err
}

// Qualify returns live member counts for a collection.
func (c *Client) Qualify(ctx context.Context, id string) (*collections.Qualification, error) {
	var out collections.Qualification
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(id)+"/qualification", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Publish publishes a collection. force overrides the minimum when the
// daemon enforces it.
func (c *Client) Publish(ctx context.Context, id string, force bool) (*collections.PublishResult, error) {
	var out collections.PublishResult
	path := "/collections/" + url.PathEscape(id) + "/publish"
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]bool{"force": force}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unpublish returns a collection to draft.
func (c *Client) Unpublish(ctx context.Context, id string) (*content.Collection, error) {
	var out content.Collection
	if err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(id)+"/unpublish", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestRule dry-runs a wire rule against the catalogue.
func (c *Client) TestRule(ctx context.Context, rule json.RawMessage, sampleSize int) (*collections.DryRunResult, error) {
	body := struct {
		Rule       json.RawMessage `json:"rule"`
		SampleSize int             `json:"sampleSize,omitempty"`
	}{rule, sampleSize}
	var out collections.DryRunResult
	if err := c.do(ctx, http.MethodPost, "/rules/test", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTaxonomy lists entries of one taxonomy kind.
func (c *Client) ListTaxonomy(ctx context.Context, kind string) ([]*content.Taxonomy, error) {
	var out []*content.Taxonomy
	err := c.do(ctx, http.MethodGet, "/taxonomy/"+url.PathEscape(kind), nil, nil, &out)
	return out, err
}
