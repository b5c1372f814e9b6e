package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainrx/internal/normalize"
	"trainrx/internal/render"
	"trainrx/internal/types"
)

var (
	requestPath  string
	versionID    string
	outputFormat string
	renderStyle  string
	renderWidth  int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the combined guideline for a request file",
	Long: `Reads a preview request (JSON, or YAML for .yaml/.yml files), evaluates
the tenant's rules for the chosen guideline version and prints the combined
guideline with its debug trace.

Examples:
  trainrx preview --request subject.json
  trainrx preview --request subject.yaml --version 2025-09 --format markdown`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&requestPath, "request", "r", "", "Request file (JSON or YAML)")
	previewCmd.Flags().StringVar(&versionID, "version", types.DefaultVersion, "Guideline version id")
	previewCmd.Flags().StringVarP(&outputFormat, "format", "f", render.FormatJSON, "Output format (json, markdown)")
	previewCmd.Flags().StringVar(&renderStyle, "style", "", "Glamour style for markdown (dark, light, notty); empty prints raw markdown")
	previewCmd.Flags().IntVar(&renderWidth, "width", 80, "Wrap width for styled markdown")
	_ = previewCmd.MarkFlagRequired("request")
}

func runPreview(cmd *cobra.Command, args []string) error {
	out, req, err := previewFromFile(cmd, requestPath, versionID)
	if err != nil {
		return err
	}
	logger.Debug("preview complete",
		zap.String("request_id", out.Meta.RequestID),
		zap.String("version", out.Meta.VersionID),
		zap.Int("rules_fired", len(out.Debug.RulesFired)),
		zap.String("request", normalize.Describe(req)))

	w := cmd.OutOrStdout()
	switch outputFormat {
	case render.FormatJSON:
		return render.JSON(w, out)
	case render.FormatMarkdown:
		md := render.Markdown(out)
		if renderStyle != "" {
			styled, err := render.Terminal(md, renderStyle, renderWidth)
			if err != nil {
				return err
			}
			md = styled
		}
		_, err := fmt.Fprint(w, md)
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", outputFormat, render.FormatJSON, render.FormatMarkdown)
	}
}

// previewFromFile reads, normalizes and previews one request file.
func previewFromFile(cmd *cobra.Command, path, version string) (*types.Preview, *types.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read request: %w", err)
	}

	repo, cleanup, err := openRepository(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()
	svc := newService(cfg, repo)

	var req *types.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		req, err = svc.NormalizeYAML(raw)
	default:
		req, err = svc.Normalize(raw)
	}
	if err != nil {
		return nil, nil, formatError(err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	out, err := svc.PreviewRequest(ctx, cfg.Tenant, version, req)
	if err != nil {
		return nil, nil, formatError(err)
	}
	return out, req, nil
}
