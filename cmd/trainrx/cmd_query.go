package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainrx/internal/audit"
	"trainrx/internal/types"
)

var dumpFacts bool

// queryCmd audits a preview with the Mangle rule set
var queryCmd = &cobra.Command{
	Use:   "query [predicate]",
	Short: "Query audit facts derived from a preview",
	Long: `Runs a preview for the request file, loads its facts and debug trace into
a Mangle program and prints the facts derived for predicate.

Example:
  trainrx query unused_fact --request subject.json
  trainrx query conflict --request subject.yaml --version 2025-09
  trainrx query --dump --request subject.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: queryAudit,
}

func init() {
	queryCmd.Flags().StringVarP(&requestPath, "request", "r", "", "Request file (JSON or YAML)")
	queryCmd.Flags().StringVar(&versionID, "version", types.DefaultVersion, "Guideline version id")
	queryCmd.Flags().BoolVar(&dumpFacts, "dump", false, "Print the extensional facts instead of querying")
	_ = queryCmd.MarkFlagRequired("request")
}

// queryAudit previews a request and queries the audit program
func queryAudit(cmd *cobra.Command, args []string) error {
	out, req, err := previewFromFile(cmd, requestPath, versionID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if dumpFacts {
		for _, f := range audit.Facts(req.Facts, out.Debug) {
			fmt.Fprintln(w, f.String())
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("predicate required (or use --dump)")
	}

	predicate := args[0]
	logger.Info("Querying audit facts", zap.String("predicate", predicate), zap.String("request_id", out.Meta.RequestID))

	auditor, err := audit.NewAuditor(cfg.Engine.AuditFactLimit)
	if err != nil {
		return fmt.Errorf("failed to load audit program: %w", err)
	}
	result, err := auditor.Evaluate(req.Facts, out.Debug)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	facts, err := result.Query(predicate)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(facts) == 0 {
		fmt.Fprintf(w, "No facts found for predicate '%s'\n", predicate)
		return nil
	}

	fmt.Fprintf(w, "Facts for '%s':\n", predicate)
	for _, fact := range facts {
		fmt.Fprintf(w, "  %s\n", fact.String())
	}
	return nil
}
