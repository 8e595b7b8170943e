package preflight

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"recipeforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func pass(name, detail string) Result { return Result{Name: name, Passed: true, Detail: detail} }
func fail(name, detail string) Result { return Result{Name: name, Detail: detail} }

type check func(context.Context) Result

// plan lists the checks that apply to cfg, in display order.
func plan(cfg *config.Config) []check {
	checks := []check{
		func(context.Context) Result { return CheckDirectoryAccess("Data directory", cfg.Paths.DataDir) },
		func(context.Context) Result { return CheckDirectoryAccess("Log directory", cfg.Paths.LogDir) },
	}
	for _, p := range [][2]string{
		{"Generation prompts", cfg.Generation.PromptsPath},
		{"Translation prompts", cfg.Translation.PromptsPath},
	} {
		if strings.TrimSpace(p[1]) != "" {
			checks = append(checks, func(context.Context) Result { return CheckPrompts(p[0], p[1]) })
		}
	}
	checks = append(checks, func(ctx context.Context) Result { return CheckLLM(ctx, "LLM", cfg.LLM) })
	if cfg.Generation.ImagesEnabled {
		checks = append(checks, func(ctx context.Context) Result {
			return CheckImageEndpoint(ctx, cfg.Generation.ImageEndpoint, cfg.LLM.APIKey)
		})
	}
	return checks
}

// RunAll runs every applicable check concurrently. Results keep plan order.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	checks := plan(cfg)
	results := make([]Result, len(checks))
	var g errgroup.Group
	for i, run := range checks {
		g.Go(func() error {
			results[i] = run(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
