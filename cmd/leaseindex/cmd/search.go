package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		finalK      int
		tenant      string
		segmentType string
		vectorOnly  bool
		lexicalOnly bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed lease corpus",
		Long: `Search runs a hybrid query by default: lexical and vector sub-searches
in parallel, fused with reciprocal rank fusion. Use --vector-only or
--lexical-only to query a single index.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if vectorOnly && lexicalOnly {
				return fmt.Errorf("--vector-only and --lexical-only are mutually exclusive")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			queryStr := strings.Join(args, " ")
			filter := map[string]string{}
			if tenant != "" {
				filter[chunk.FilterKeyTenant] = tenant
			}
			if segmentType != "" {
				filter[chunk.FilterKeySegmentType] = segmentType
			}
			if len(filter) == 0 {
				filter = nil
			}

			opts := search.Options{
				VectorK:       cfg.Search.VectorK,
				LexicalK:      cfg.Search.LexicalK,
				FinalK:        cfg.Search.FinalK,
				RRFK:          cfg.Search.RRFK,
				VectorWeight:  cfg.Search.VectorWeight,
				LexicalWeight: cfg.Search.LexicalWeight,
				Filter:        filter,
			}
			if finalK > 0 {
				opts.FinalK = finalK
			}

			var results []*search.ScoredResult
			degraded := false
			switch {
			case vectorOnly:
				results, err = engine.SearchVector(cmd.Context(), queryStr, opts.FinalK, filter)
			case lexicalOnly:
				results, err = engine.SearchLexical(cmd.Context(), queryStr, opts.FinalK, filter)
			default:
				var resp *search.Response
				resp, err = engine.Search(cmd.Context(), queryStr, opts)
				if resp != nil {
					results = resp.Results
					degraded = resp.Degraded
				}
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
			}
			printResults(cmd, results, degraded)
			return nil
		},
	}

	cmd.Flags().IntVarP(&finalK, "limit", "k", 0, "Maximum results to return")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Restrict results to one tenant")
	cmd.Flags().StringVar(&segmentType, "segment-type", "", "Restrict results to a segment type (data_sheet, rent_schedule, article, exhibit, general)")
	cmd.Flags().BoolVar(&vectorOnly, "vector-only", false, "Query the vector index alone")
	cmd.Flags().BoolVar(&lexicalOnly, "lexical-only", false, "Query the lexical index alone")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, results []*search.ScoredResult, degraded bool) {
	out := cmd.OutOrStdout()

	if degraded {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: one index failed, results are degraded")
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return
	}

	for i, r := range results {
		citation := r.Metadata.SegmentName
		if r.Metadata.Tenant != "" {
			citation = fmt.Sprintf("%s, %s", r.Metadata.Tenant, citation)
		}
		fmt.Fprintf(out, "%d. [%s] score=%.4f", i+1, citation, r.FusedScore)
		if r.VectorRank > 0 {
			fmt.Fprintf(out, " vec#%d", r.VectorRank)
		}
		if r.LexicalRank > 0 {
			fmt.Fprintf(out, " lex#%d", r.LexicalRank)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "   %s\n\n", snippet(r.Content, 200))
	}
}

// snippet truncates content to a display length on a rune boundary.
func snippet(content string, max int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
