package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/HendryAvila/aluconfig/internal/server"
)

func newCatalogCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the product catalog",
	}
	cmd.AddCommand(newCatalogListCommand(o))
	cmd.AddCommand(newCatalogValidateCommand(o))
	return cmd
}

func newCatalogListCommand(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every product with its link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			eng, err := server.NewEngine(cfg)
			if err != nil {
				return err
			}
			return listCatalog(cmd.OutOrStdout(), eng, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newCatalogValidateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every product can be reached by answering the questions",
		Long: `Load the configured catalog and facet schema, then check:
  - every product is the single result of answering with its own values
  - every value offered to the user has a label

Exit code: 0 if valid, 1 if a product cannot be reached`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			eng, err := server.NewEngine(cfg)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.RedString("✗"), err)
				return err
			}
			return validateCatalog(cmd.OutOrStdout(), eng)
		},
	}
}

func listCatalog(w io.Writer, eng *engine.Engine, asJSON bool) error {
	products := eng.Catalog().Products()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(present.Views(eng, products))
	}
	for _, v := range present.Views(eng, products) {
		fmt.Fprintf(w, "%-40s %s\n", v.ID, strings.Join(v.Chips, " · "))
		fmt.Fprintf(w, "%-40s %s\n", "", v.URL)
	}
	fmt.Fprintf(w, "\n%d products\n", len(products))
	return nil
}

// validateCatalog reports unreachable products as errors and unlabelled
// values as warnings.
func validateCatalog(w io.Writer, eng *engine.Engine) error {
	products := eng.Catalog().Products()

	var unreachable []string
	for _, p := range products {
		out := eng.Decide(selectionsFor(eng, p))
		if out.IsFinal && len(out.CandidateProducts) == 1 && out.CandidateProducts[0].ID == p.ID {
			continue
		}
		others := make([]string, 0, len(out.CandidateProducts))
		for _, c := range out.CandidateProducts {
			if c.ID != p.ID {
				others = append(others, c.ID)
			}
		}
		unreachable = append(unreachable, p.ID)
		fmt.Fprintf(w, "%s %s cannot be told apart from: %s\n", color.RedString("✗"), p.ID, strings.Join(others, ", "))
	}

	for _, f := range eng.Schema().Facets() {
		for _, v := range engine.Values(f, products) {
			if f.Labels[v] == "" {
				fmt.Fprintf(w, "%s facet %s: value %q has no label\n", color.YellowString("!"), f.ID, v)
			}
		}
	}

	if len(unreachable) > 0 {
		fmt.Fprintf(w, "\nValidation failed: %d of %d products unreachable\n", len(unreachable), len(products))
		return fmt.Errorf("%d unreachable products", len(unreachable))
	}
	fmt.Fprintf(w, "%s Catalog is valid: %d products, %d questions\n", color.GreenString("✓"), len(products), eng.Schema().Len())
	return nil
}

// selectionsFor answers every applicable facet with p's own values.
func selectionsFor(eng *engine.Engine, p catalog.Product) engine.Selections {
	sel := eng.Reset()
	for _, f := range eng.Schema().Facets() {
		if !f.Applicable(sel) {
			continue
		}
		if v, ok := p.Field(f.Field); ok {
			sel = eng.Apply(sel, f.ID, v)
		}
	}
	return sel
}
