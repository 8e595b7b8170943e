package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/internal/client"
	"recipeforge/internal/collections"
	"recipeforge/internal/content"
	"recipeforge/internal/rules"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Inspect and publish collections",
	}

	collectionCmd.AddCommand(newCollectionCreateCommand(ctx))
	collectionCmd.AddCommand(newCollectionListCommand(ctx))
	collectionCmd.AddCommand(newCollectionShowCommand(ctx))
	collectionCmd.AddCommand(newCollectionQualifyCommand(ctx))
	collectionCmd.AddCommand(newCollectionPublishCommand(ctx))
	collectionCmd.AddCommand(newCollectionUnpublishCommand(ctx))
	collectionCmd.AddCommand(newCollectionMembersCommand(ctx))
	for _, action := range []string{"pin", "unpin", "exclude", "include"} {
		collectionCmd.AddCommand(newCollectionCurateCommand(ctx, action))
	}
	collectionCmd.AddCommand(newTaxonomyListCommand(ctx))
	return collectionCmd
}

func newCollectionCreateCommand(ctx *commandContext) *cobra.Command {
	var req client.NewCollection
	var rule string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a draft collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Title = args[0]
			if rule != "" {
				raw, err := readRuleArg(cmd.InOrStdin(), rule)
				if err != nil {
					return err
				}
				req.Rule = raw
			}
			c, err := ctx.apiClient().CreateCollection(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, c)
			}
			printCollection(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Collection description")
	cmd.Flags().StringVarP(&rule, "rule", "r", "", "Rule as JSON, @file or -")
	cmd.Flags().StringVar(&req.CuisineID, "cuisine", "", "Cuisine id to scope the collection to")
	cmd.Flags().StringVar(&req.LocationID, "location", "", "Location id to scope the collection to")
	cmd.Flags().IntVar(&req.MinRequired, "min", 0, "Minimum published recipes (default from config)")
	cmd.Flags().IntVar(&req.TargetCount, "target", 0, "Target recipe count (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCollectionListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.apiClient().ListCollections(cmd.Context(), strings.TrimSpace(status))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list))
			for _, c := range list {
				rows = append(rows, []string{
					c.ID,
					truncate(c.Title, 32),
					string(c.Status),
					strconv.Itoa(c.CachedPublishedCount),
					strconv.Itoa(c.MinRequired),
					truncate(rules.Describe(c.Rule), 40),
				})
			}
			printTable(cmd.OutOrStdout(), "No collections",
				[]string{"ID", "Title", "Status", "Published", "Min", "Rule"}, rows, "lllrrl")
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (draft or published)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCollectionShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient().GetCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, c)
			}
			printCollection(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCollectionQualifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "qualify <id>",
		Short: "Count a collection's members against its thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ctx.apiClient().Qualify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, q)
			}
			printQualification(cmd.OutOrStdout(), q)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCollectionPublishCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a collection if it meets its minimum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.apiClient().Publish(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			p := newPanel(out)
			kind := statusOK
			if result.Warning {
				kind = statusWarn
			}
			p.line("Publish", kind, result.Message)
			if result.Qualification != nil {
				printQualification(out, result.Qualification)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Publish even when below the minimum")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCollectionUnpublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish <id>",
		Short: "Return a collection to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient().Unpublish(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection %s is now %s\n", c.ID, c.Status)
			return nil
		},
	}
}

func newCollectionCurateCommand(ctx *commandContext, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id> <recipe-id>...",
		Short: strings.ToUpper(action[:1]) + action[1:] + " recipes on a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient().Curate(cmd.Context(), args[0], action, args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection %s: %d pinned, %d excluded\n",
				c.ID, len(c.PinnedRecipeIDs), len(c.ExcludedRecipeIDs))
			return nil
		},
	}
}

func newCollectionMembersCommand(ctx *commandContext) *cobra.Command {
	var publishedOnly bool
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "members <id>",
		Short: "List the recipes a collection selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipes, err := ctx.apiClient().Members(cmd.Context(), args[0], publishedOnly, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, recipes)
			}
			rows := make([][]string, 0, len(recipes))
			for _, r := range recipes {
				rows = append(rows, []string{r.ID, truncate(r.Title, 40), string(r.Status), string(r.ReviewStatus)})
			}
			printTable(cmd.OutOrStdout(), "No matching recipes", []string{"ID", "Title", "Status", "Review"}, rows, "")
			return nil
		},
	}
	cmd.Flags().BoolVar(&publishedOnly, "published", false, "Only published recipes")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum recipes to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTaxonomyListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "taxonomy <cuisine|location|tag|ingredient>",
		Short: "List taxonomy entries usable in rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.apiClient().ListTaxonomy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t.ID, t.Slug, t.Name, valueOrDash(string(t.Dimension))})
			}
			printTable(cmd.OutOrStdout(), "No entries", []string{"ID", "Slug", "Name", "Dimension"}, rows, "")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRuleCommand(ctx *commandContext) *cobra.Command {
	ruleCmd := &cobra.Command{
		Use:   "rule",
		Short: "Collection rule utilities",
	}

	var sample int
	var asJSON bool
	testCmd := &cobra.Command{
		Use:   "test <rule-json | @file | ->",
		Short: "Validate a rule and preview what it matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRuleArg(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			result, err := ctx.apiClient().TestRule(cmd.Context(), raw, sample)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			printDryRun(cmd.OutOrStdout(), result)
			return nil
		},
	}
	testCmd.Flags().IntVar(&sample, "sample", 0, "Number of sample recipes to return")
	testCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	ruleCmd.AddCommand(testCmd)
	return ruleCmd
}

// readRuleArg accepts inline JSON, @path for a file or - for stdin.
func readRuleArg(stdin io.Reader, arg string) (json.RawMessage, error) {
	var data []byte
	var err error
	switch {
	case arg == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		data = []byte(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("rule is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func printCollection(out io.Writer, c *content.Collection) {
	p := newPanel(out)
	p.header(c.Title)
	p.line("ID", statusInfo, c.ID)
	p.line("Status", jobStatusKind(string(c.Status)), string(c.Status))
	p.line("Rule", statusInfo, rules.Describe(c.Rule))
	p.line("Thresholds", statusInfo,
		fmt.Sprintf("min %d, target %d", c.MinRequired, c.TargetCount))
	p.line("Cached published", statusInfo, strconv.Itoa(c.CachedPublishedCount))
	p.line("Pinned", statusInfo, strconv.Itoa(len(c.PinnedRecipeIDs)))
	p.line("Excluded", statusInfo, strconv.Itoa(len(c.ExcludedRecipeIDs)))
	if c.PublishedAt != nil {
		p.line("Published at", statusInfo, formatTime(c.PublishedAt))
	}
}

func printQualification(out io.Writer, q *collections.Qualification) {
	p := newPanel(out)
	p.line("Qualification", jobStatusKind(string(q.QualifiedStatus)), string(q.QualifiedStatus))
	p.line("Published", statusInfo,
		fmt.Sprintf("%d (min %d, target %d, reached %s)", q.Counts.Published, q.MinRequired, q.TargetCount, yesNo(q.TargetReached)))
	p.line("Pending review", statusInfo, strconv.Itoa(q.Counts.Pending))
	p.line("Draft", statusInfo, strconv.Itoa(q.Counts.Draft))
}

func printDryRun(out io.Writer, result *collections.DryRunResult) {
	p := newPanel(out)
	if !result.Valid {
		p.line("Rule", statusError, "invalid")
		for _, msg := range result.Errors {
			p.item(msg)
		}
		return
	}
	p.line("Rule", statusOK, result.Description)
	p.line("Matches", statusInfo,
		fmt.Sprintf("%d published, %d pending, %d draft", result.Counts.Published, result.Counts.Pending, result.Counts.Draft))
	if len(result.Sample) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(result.Sample))
	for _, r := range result.Sample {
		rows = append(rows, []string{r.ID, truncate(r.Title, 40)})
	}
	printTable(out, "", []string{"ID", "Title"}, rows, "")
}
