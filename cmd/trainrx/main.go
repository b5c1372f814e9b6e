package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainrx/internal/anthro"
	"trainrx/internal/catalog"
	"trainrx/internal/config"
	"trainrx/internal/engine"
	"trainrx/internal/logging"
	"trainrx/internal/normalize"
	"trainrx/internal/preview"
	"trainrx/internal/rir"
	"trainrx/internal/store"
	"trainrx/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string
	tenant     string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trainrx",
	Short: "trainrx - clinical training guideline engine",
	Long: `trainrx evaluates a tenant's guideline rules against a subject's facts
and combines every applicable rule into one training prescription
(aerobic, resistance, flexibility) with a full debug trace.

Rules are read from YAML catalog files or from a SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		cfg = loaded
		if tenant != "" {
			cfg.Tenant = tenant
		}

		opts := logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			opts.Level = "debug"
		}
		logger, err = logging.Build(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger, opts)
		logging.Boot("%s %s: command=%q backend=%s tenant=%s",
			cfg.Name, cfg.Version, cmd.CommandPath(), cfg.Store.Backend, cfg.Tenant)
		if off := disabledCategories(cfg.Logging); len(off) > 0 {
			logging.Boot("log categories disabled: %s", strings.Join(off, ", "))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "trainrx.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", "", "Tenant (default from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext bounds a one-shot command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(baseContext(cmd), timeout)
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openRepository returns the configured rule repository and a cleanup func.
// For the catalog backend the *catalog.Repository is returned so callers can
// attach a watcher.
func openRepository(c *config.Config) (preview.RuleRepository, func(), error) {
	switch c.Store.Backend {
	case config.BackendSQLite:
		st, err := store.Open(c.Store.Driver, c.Store.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		cat, err := catalog.Load(c.Store.CatalogDir)
		if err != nil {
			return nil, nil, err
		}
		logging.Catalog("loaded %d rules from %d files", cat.RuleCount(), len(cat.Sources()))
		return catalog.NewRepository(cat), func() {}, nil
	}
}

// newService wires the preview service from config.
func newService(c *config.Config, repo preview.RuleRepository) *preview.Service {
	cautions := make([]engine.MedicationCaution, len(c.Engine.MedicationCautions))
	for i, mc := range c.Engine.MedicationCautions {
		cautions[i] = engine.MedicationCaution{Tag: mc.Tag, Caution: mc.Caution}
	}
	return preview.NewService(repo,
		preview.WithNormalizer(normalize.New(types.AerobicMethod(c.Engine.DefaultAerobicMethod))),
		preview.WithAerobicResolver(engine.NewAerobicResolver(cautions)),
		preview.WithAnthropometry(anthro.NewCalculator()),
		preview.WithRIR(rir.NewCalculator()),
	)
}

// disabledCategories lists the log categories switched off in lc.
func disabledCategories(lc config.LoggingConfig) []string {
	var off []string
	for _, c := range logging.AllCategories {
		if !lc.IsCategoryEnabled(string(c)) {
			off = append(off, string(c))
		}
	}
	return off
}

// formatError spells out validation fields one per line. Locally the cause of
// an internal error is safe to show.
func formatError(err error) error {
	var verr *types.ValidationError
	var ierr *types.InternalError
	switch {
	case errors.As(err, &verr):
		var sb strings.Builder
		sb.WriteString("request is invalid:")
		for _, f := range verr.Fields {
			sb.WriteString("\n  - ")
			sb.WriteString(f.String())
		}
		return errors.New(sb.String())
	case errors.As(err, &ierr):
		return fmt.Errorf("internal error: %s", ierr.Cause())
	default:
		return err
	}
}
