package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/internal/content"
	"recipeforge/internal/generation"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Manage recipe generation jobs",
	}

	generateCmd.AddCommand(newGenerateCreateCommand(ctx))
	generateCmd.AddCommand(newGenerateListCommand(ctx))
	generateCmd.AddCommand(newGenerateShowCommand(ctx))
	for _, action := range []string{"start", "pause", "resume", "cancel"} {
		generateCmd.AddCommand(newGenerateControlCommand(ctx, action))
	}
	return generateCmd
}

func newGenerateCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		names        []string
		collectionID string
		cuisineID    string
		locationID   string
		reviewMode   string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "create [name...]",
		Short: "Submit recipe names for generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := generation.CreateRequest{
				SourceType:  content.SourceManual,
				RecipeNames: append(append([]string{}, names...), args...),
				LockedTags: content.LockedTags{
					CuisineID:  strings.TrimSpace(cuisineID),
					LocationID: strings.TrimSpace(locationID),
					ReviewMode: content.ReviewMode(strings.TrimSpace(reviewMode)),
				},
			}
			if id := strings.TrimSpace(collectionID); id != "" {
				req.SourceType = content.SourceCollection
				req.CollectionID = id
			}
			result, err := ctx.apiClient().CreateGenerateJob(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created generation job %s (%d recipes, status %s)\n",
				result.Job.ID, result.Job.TotalCount, result.Job.Status)
			if result.DroppedCount > 0 {
				fmt.Fprintf(out, "Dropped %d duplicate names: %s\n", result.DroppedCount, strings.Join(result.DroppedNames, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&names, "name", "n", nil, "Recipe name to generate (repeatable)")
	cmd.Flags().StringVar(&collectionID, "collection", "", "Collection the job fills")
	cmd.Flags().StringVar(&cuisineID, "cuisine", "", "Cuisine id locked onto every recipe")
	cmd.Flags().StringVar(&locationID, "location", "", "Location id locked onto every recipe")
	cmd.Flags().StringVar(&reviewMode, "review-mode", "", "Review mode for generated recipes (manual or auto)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newGenerateListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.apiClient().ListGenerateJobs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, jobs)
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					fmt.Sprintf("%d/%d", job.Cursor(), job.TotalCount),
					strconv.Itoa(job.FailedCount),
					valueOrDash(job.CollectionID),
					formatTime(&job.CreatedAt),
				})
			}
			printTable(cmd.OutOrStdout(), "No generation jobs",
				[]string{"ID", "Status", "Progress", "Failed", "Collection", "Created"}, rows, "llrrll")
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newGenerateShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a generation job and its item results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.apiClient().GetGenerateJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}
			printGenerateJob(cmd, job)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newGenerateControlCommand(ctx *commandContext, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.apiClient().ControlGenerateJob(cmd.Context(), args[0], action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generation job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func printGenerateJob(cmd *cobra.Command, job *content.GenerateJob) {
	out := cmd.OutOrStdout()
	p := newPanel(out)
	p.header("Generation Job " + job.ID)
	p.line("Status", jobStatusKind(string(job.Status)), string(job.Status))
	p.line("Source", statusInfo, string(job.SourceType))
	if job.CollectionID != "" {
		p.line("Collection", statusInfo, job.CollectionID)
	}
	p.line("Review mode", statusInfo, string(job.LockedTags.EffectiveReviewMode()))
	p.line("Progress", statusInfo,
		fmt.Sprintf("%d ok, %d failed of %d", job.SuccessCount, job.FailedCount, job.TotalCount))
	if job.ErrorMessage != "" {
		p.line("Error", statusError, job.ErrorMessage)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(job.Results))
	for _, item := range job.Results {
		outcome := "ok"
		detail := item.RecipeID
		if !item.Success {
			outcome = "failed"
			detail = truncate(item.Error, 60)
		}
		rows = append(rows, []string{strconv.Itoa(item.Index + 1), item.Name, outcome, detail})
	}
	printTable(out, "No items processed yet", []string{"#", "Name", "Outcome", "Recipe / Error"}, rows, "rlll")
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
