package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/internal/client"
	"recipeforge/internal/content"
	"recipeforge/internal/language"
	"recipeforge/internal/translation"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	translateCmd := &cobra.Command{
		Use:     "translate",
		Aliases: []string{"tr"},
		Short:   "Manage translation jobs",
	}

	translateCmd.AddCommand(newTranslateCreateCommand(ctx))
	translateCmd.AddCommand(newTranslateListCommand(ctx))
	translateCmd.AddCommand(newTranslateShowCommand(ctx))
	translateCmd.AddCommand(newTranslateRunCommand(ctx))
	translateCmd.AddCommand(newTranslateRunPendingCommand(ctx))
	translateCmd.AddCommand(newTranslateControlCommand(ctx, "retry"))
	translateCmd.AddCommand(newTranslateControlCommand(ctx, "cancel"))
	translateCmd.AddCommand(newTranslatePrioritizeCommand(ctx))
	return translateCmd
}

func newTranslateCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		entityType string
		langs      []string
		priority   int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "create <entity-id>...",
		Short: "Queue translations of one or more entities into one or more languages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, invalid := language.NormalizeList(langs)
			if len(invalid) > 0 {
				return fmt.Errorf("invalid language tags: %s", strings.Join(invalid, ", "))
			}
			if len(targets) == 0 {
				return fmt.Errorf("at least one --lang is required")
			}
			api := ctx.apiClient()
			kind := content.EntityType(strings.TrimSpace(entityType))
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				results := make([]*translation.CreateResult, 0, len(targets))
				for _, lang := range targets {
					result, err := api.CreateTranslationJob(cmd.Context(), translation.CreateRequest{
						EntityType: kind, EntityID: args[0], TargetLang: lang, Priority: priority,
					})
					if err != nil {
						return err
					}
					results = append(results, result)
				}
				if asJSON {
					return writeJSON(cmd, results)
				}
				for _, result := range results {
					verb := "Reused"
					if result.Created {
						verb = "Created"
					}
					fmt.Fprintf(out, "%s translation job %s for %s (%s)\n",
						verb, result.Job.ID, language.Label(result.Job.TargetLang), result.Job.Status)
				}
				return nil
			}

			results := make([]*translation.BatchResult, 0, len(targets))
			for _, lang := range targets {
				result, err := api.CreateTranslationBatch(cmd.Context(), translation.BatchRequest{
					EntityType: kind, EntityIDs: args, TargetLang: lang, Priority: priority,
				})
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			for i, result := range results {
				fmt.Fprintf(out, "%s: created %d translation jobs, skipped %d\n",
					language.Label(targets[i]), len(result.Created), len(result.Skipped))
				for _, skip := range result.Skipped {
					fmt.Fprintf(out, "  %s: %s\n", skip.EntityID, skip.Reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityType, "type", "t", string(content.EntityRecipe), "Entity type")
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Target language (BCP 47, repeatable or comma separated)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority 1-10 (default 5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func newTranslateListCommand(ctx *commandContext) *cobra.Command {
	var filter client.TranslationFilter
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List translation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.apiClient().ListTranslationJobs(cmd.Context(), filter)
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
					string(job.EntityType) + "/" + job.EntityID,
					language.Label(job.TargetLang),
					string(job.Status),
					strconv.Itoa(job.Priority),
					fmt.Sprintf("%d/%d", job.RetryCount, job.MaxRetries),
					truncate(valueOrDash(job.ErrorMessage), 40),
				})
			}
			printTable(cmd.OutOrStdout(), "No translation jobs",
				[]string{"ID", "Entity", "Lang", "Status", "Priority", "Retries", "Error"}, rows, "llllrrl")
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.EntityType, "type", "", "Filter by entity type")
	cmd.Flags().StringVar(&filter.EntityID, "entity", "", "Filter by entity id")
	cmd.Flags().StringVar(&filter.Lang, "lang", "", "Filter by target language")
	cmd.Flags().StringSliceVarP(&filter.Statuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum jobs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTranslateShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a translation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.apiClient().GetTranslationJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}
			printTranslationJob(cmd, job)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTranslateRunCommand(ctx *commandContext) *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run a translation job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := "async"
			if sync {
				mode = "sync"
			}
			job, err := ctx.apiClient().RunTranslationJob(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !sync {
				fmt.Fprintf(out, "Translation job %s queued\n", job.ID)
				return nil
			}
			fmt.Fprintf(out, "Translation job %s finished as %s\n", job.ID, job.Status)
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", job.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "Wait for the translation to finish")
	return cmd
}

func newTranslateRunPendingCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "run-pending",
		Short: "Dispatch pending translation jobs that are due",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.apiClient().RunPendingTranslations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %d translation jobs\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum jobs to dispatch")
	return cmd
}

func newTranslateControlCommand(ctx *commandContext, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a translation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.apiClient().ControlTranslationJob(cmd.Context(), args[0], action, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Translation job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func newTranslatePrioritizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prioritize <id> <priority>",
		Short: "Change a translation job's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("priority must be a number: %w", err)
			}
			job, err := ctx.apiClient().ControlTranslationJob(cmd.Context(), args[0], "prioritize", priority)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Translation job %s priority is now %d\n", job.ID, job.Priority)
			return nil
		},
	}
}

func printTranslationJob(cmd *cobra.Command, job *content.TranslationJob) {
	out := cmd.OutOrStdout()
	p := newPanel(out)
	p.header("Translation Job " + job.ID)
	p.line("Status", jobStatusKind(string(job.Status)), string(job.Status))
	p.line("Entity", statusInfo, string(job.EntityType)+"/"+job.EntityID)
	p.line("Language", statusInfo, language.Label(job.TargetLang))
	p.line("Priority", statusInfo, strconv.Itoa(job.Priority))
	p.line("Retries", statusInfo, fmt.Sprintf("%d of %d", job.RetryCount, job.MaxRetries))
	if job.QualityScore != nil {
		p.line("Quality", statusInfo, strconv.FormatFloat(*job.QualityScore, 'f', 2, 64))
	}
	if job.NextAttemptAt != nil {
		p.line("Next attempt", statusInfo, formatTime(job.NextAttemptAt))
	}
	if job.ErrorMessage != "" {
		p.line("Error", statusError, job.ErrorMessage)
	}
}
