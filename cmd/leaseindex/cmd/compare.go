package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medleycre/leaseindex/internal/search"
)

func newCompareCmd() *cobra.Command {
	var (
		tenants    []string
		finalK     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "compare <query>",
		Short: "Run the same query per tenant and show results side by side",
		Long: `Compare runs the query once per tenant with a tenant filter, which is
how cross-lease questions ("how do the renewal options differ?") get
answered without one tenant's lease dominating the results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := search.Options{
				VectorK:       cfg.Search.VectorK,
				LexicalK:      cfg.Search.LexicalK,
				FinalK:        cfg.Search.FinalK,
				RRFK:          cfg.Search.RRFK,
				VectorWeight:  cfg.Search.VectorWeight,
				LexicalWeight: cfg.Search.LexicalWeight,
			}
			if finalK > 0 {
				opts.FinalK = finalK
			}

			queryStr := strings.Join(args, " ")
			perTenant, err := engine.CompareTenants(cmd.Context(), queryStr, tenants, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(perTenant)
			}

			names := make([]string, 0, len(perTenant))
			for name := range perTenant {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "=== %s ===\n", name)
				results := perTenant[name]
				if len(results) == 0 {
					fmt.Fprintln(out, "No results.")
					fmt.Fprintln(out)
					continue
				}
				for i, r := range results {
					fmt.Fprintf(out, "%d. [%s] score=%.4f\n", i+1, r.Metadata.SegmentName, r.FusedScore)
					fmt.Fprintf(out, "   %s\n", snippet(r.Content, 160))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tenants, "tenants", nil, "Tenants to compare (default: all)")
	cmd.Flags().IntVarP(&finalK, "limit", "k", 3, "Results per tenant")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	return cmd
}
