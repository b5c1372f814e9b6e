// Package render formats previews for people: markdown, styled terminal
// output via glamour, and indented JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"trainrx/internal/types"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Markdown renders a preview as a markdown document.
func Markdown(p *types.Preview) string {
	var sb strings.Builder
	g := p.Guideline

	sb.WriteString("# Training guidelines\n\n")
	fmt.Fprintf(&sb, "Version `%s`, generated %s.\n\n", p.Meta.VersionID, p.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("## Aerobic\n\n")
	if a := g.Aerobic; a != nil {
		writeRange(&sb, "Duration (min)", a.DurationRange)
		if in := a.Intensity; in != nil {
			label := in.Method
			if in.Text != "" {
				label += ", " + in.Text
			}
			if in.Range != nil {
				fmt.Fprintf(&sb, "- **Intensity:** %s %s\n", label, in.Range)
			} else {
				fmt.Fprintf(&sb, "- **Intensity:** %s\n", label)
			}
		}
		writeRange(&sb, "Frequency (per week)", a.FrequencyRange)
		writeList(&sb, a.Observations)
	} else {
		sb.WriteString("_No aerobic prescription._\n")
	}

	sb.WriteString("\n## Resistance\n\n")
	if r := g.Resistance; r != nil {
		writeRange(&sb, "Exercises", r.ExerciseCountRange)
		writeRange(&sb, "Series", r.SeriesRange)
		writeRange(&sb, "Repetitions", r.RepRange)
		writeRange(&sb, "Intensity (%1RM)", r.IntensityPctRange)
		writeRange(&sb, "Frequency (per week)", r.FrequencyRange)
		writeList(&sb, r.Observations)
	} else {
		sb.WriteString("_No resistance prescription._\n")
	}

	sb.WriteString("\n## Flexibility\n\n")
	if f := g.Flexibility; f != nil {
		if f.Focus != types.FocusUnset {
			fmt.Fprintf(&sb, "- **Focus:** %s\n", f.Focus)
		}
		writeList(&sb, f.Observations)
	} else {
		sb.WriteString("_No flexibility prescription._\n")
	}

	if len(g.Contraindications) > 0 {
		sb.WriteString("\n## Contraindications\n\n")
		writeList(&sb, g.Contraindications)
	}
	if len(g.Observations) > 0 {
		sb.WriteString("\n## Observations\n\n")
		writeList(&sb, g.Observations)
	}

	writeTrace(&sb, p.Debug)
	return sb.String()
}

func writeTrace(sb *strings.Builder, t types.Trace) {
	sb.WriteString("\n## Rules fired\n\n")
	if len(t.RulesFired) == 0 {
		sb.WriteString("_None._\n")
	} else {
		sb.WriteString("| Rule | Priority | Tags |\n|---|---|---|\n")
		for _, r := range t.RulesFired {
			fmt.Fprintf(sb, "| %s | %s | %s |\n", r.ID, r.Priority, strings.Join(r.TagsReferenced, ", "))
		}
	}

	if len(t.Merges) > 0 {
		sb.WriteString("\n## Merges\n\n")
		fields := make([]string, 0, len(t.Merges))
		for f := range t.Merges {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			m := t.Merges[f]
			fmt.Fprintf(sb, "- `%s` (%s): %s\n", f, m.Criterion, formatValue(m.After))
		}
	}

	if len(t.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, w := range t.Warnings {
			fmt.Fprintf(sb, "> %s\n", w)
		}
	}
}

func writeRange(sb *strings.Builder, label string, r *types.Range) {
	if r == nil {
		return
	}
	fmt.Fprintf(sb, "- **%s:** %g to %g", label, r.Low(), r.High())
	if r.Inverted() {
		sb.WriteString(" (no common interval)")
	}
	sb.WriteByte('\n')
}

func writeList(sb *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case []string:
		return strings.Join(x, "; ")
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Terminal renders markdown for a terminal. style is a glamour style name
// ("dark", "light", "notty", ...); empty selects one from the terminal.
func Terminal(markdown, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
