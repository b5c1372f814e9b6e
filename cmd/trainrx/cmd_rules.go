package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainrx/internal/catalog"
	"trainrx/internal/config"
	"trainrx/internal/store"
	"trainrx/internal/types"
)

// rulesCmd groups catalog maintenance commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate, import and list guideline rules",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate every catalog file in a directory",
	Long: `Parses and validates every .yaml/.yml catalog file in dir (default: the
configured catalog_dir). All problems are reported at once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesValidate,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import a catalog directory into the SQLite rule store",
	Long: `Validates the catalog directory and writes every version and rule into
the configured SQLite database. Re-importing a version replaces its rules.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesImport,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the guideline versions of a tenant",
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesListCmd)
}

func catalogDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Store.CatalogDir
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	dir := catalogDir(args)
	cat, err := catalog.Load(dir)
	if err != nil {
		return fmt.Errorf("catalog %s is invalid:\n%w", dir, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s: %d file(s), %d tenant(s), %d rule(s)\n",
		dir, len(cat.Sources()), len(cat.Tenants()), cat.RuleCount())
	for _, t := range cat.Tenants() {
		for _, v := range cat.Versions(t) {
			if len(v.Rules) == 0 && v.Status == types.StatusPublished {
				fmt.Fprintf(w, "  ! %s/%s is published with no rules; previews will only warn\n", t, v.ID)
			}
		}
	}
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	dir := catalogDir(args)
	cat, err := catalog.Load(dir)
	if err != nil {
		return fmt.Errorf("catalog %s is invalid:\n%w", dir, err)
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	stats, err := st.ImportCatalog(ctx, cat)
	if err != nil {
		return err
	}

	logger.Info("catalog imported",
		zap.String("dir", dir),
		zap.String("database", st.Path()),
		zap.Int("versions", stats.Versions),
		zap.Int("rules", stats.Rules))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d version(s), %d rule(s) into %s\n", stats.Versions, stats.Rules, st.Path())
	return nil
}

// versionRow is one line of `rules list`.
type versionRow struct {
	id, status string
	isDefault  bool
	rules      int
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rows, err := listVersions(cmd, cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintf(w, "No guideline versions for tenant '%s'\n", cfg.Tenant)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tDEFAULT\tRULES")
	for _, r := range rows {
		def := ""
		if r.isDefault {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.id, r.status, def, r.rules)
	}
	return tw.Flush()
}

func listVersions(cmd *cobra.Command, c *config.Config) ([]versionRow, error) {
	if strings.EqualFold(c.Store.Backend, config.BackendSQLite) {
		st, err := store.Open(c.Store.Driver, c.Store.DatabasePath)
		if err != nil {
			return nil, err
		}
		defer st.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		summaries, err := st.ListVersions(ctx, c.Tenant)
		if err != nil {
			return nil, err
		}
		rows := make([]versionRow, len(summaries))
		for i, s := range summaries {
			rows[i] = versionRow{id: s.ID, status: string(s.Status), isDefault: s.IsDefault, rules: s.RuleCount}
		}
		return rows, nil
	}

	cat, err := catalog.Load(c.Store.CatalogDir)
	if err != nil {
		return nil, err
	}
	versions := cat.Versions(c.Tenant)
	rows := make([]versionRow, len(versions))
	for i, v := range versions {
		rows[i] = versionRow{id: v.ID, status: string(v.Status), isDefault: v.IsDefault, rules: len(v.Rules)}
	}
	return rows, nil
}
