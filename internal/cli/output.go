package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

var (
	authenticStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#04B575"})

	rejectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F87"})

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"})

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#585858", Dark: "#A8A8A8"})

	headerStyle = lipgloss.NewStyle().Bold(true)
)

// verifyOutput is the JSON shape of one verification.
type verifyOutput struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	*matcher.Decision
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func renderDecision(w io.Writer, format, key, path string, d *matcher.Decision) error {
	if format == "json" {
		return printJSON(w, verifyOutput{Key: key, Path: path, Decision: d})
	}

	verdict := authenticStyle.Render("AUTHENTIC")
	cmp := ">"
	if !d.Authentic {
		verdict = rejectedStyle.Render("NOT AUTHENTIC")
		cmp = "<="
	}
	_, err := fmt.Fprintf(w, "%s  %s %s  %s %.4f %s %.4f\n",
		verdict,
		labelStyle.Render("key"), key,
		labelStyle.Render("score"), d.Score, cmp, d.Threshold)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("image"), path)
	return err
}

func renderEnroll(w io.Writer, format string, res *verifier.EnrollResult) error {
	if format == "json" {
		return printJSON(w, res)
	}
	_, err := fmt.Fprintf(w, "%s %s: %d descriptors (dim %d, %s) from %d image(s)\n",
		headerStyle.Render("Enrolled"), res.Key, res.Descriptors, res.Dimension, res.Extractor, len(res.Sources))
	return err
}

func renderTemplates(w io.Writer, format string, keys []string) error {
	if format == "json" {
		return printJSON(w, map[string]interface{}{
			"count": len(keys),
			"keys":  keys,
		})
	}
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, labelStyle.Render("no templates enrolled"))
		return err
	}
	_, err := fmt.Fprintln(w, strings.Join(keys, "\n"))
	return err
}

// inspectOutput is the JSON shape of an inspection.
type inspectOutput struct {
	*verifier.Inspection
	Descriptors int      `json:"descriptors"`
	StageFiles  []string `json:"stage_files,omitempty"`
}

func renderInspection(w io.Writer, format string, insp *verifier.Inspection, files []string) error {
	if format == "json" {
		return printJSON(w, inspectOutput{
			Inspection:  insp,
			Descriptors: insp.Features.Len(),
			StageFiles:  files,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", headerStyle.Render("Image"), insp.Path)
	fmt.Fprintf(&b, "  %s %dx%d\n", labelStyle.Render("size"), insp.Width, insp.Height)
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("keypoints"), len(insp.Keypoints))
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("descriptors"), insp.Features.Len())
	if s := insp.Strokes; s != nil {
		fmt.Fprintf(&b, "  %s %d (ink %d px, perimeter %.1f, vertices %d, density %.3f)\n",
			labelStyle.Render("strokes"), s.Count, s.InkPixels, s.TotalPerimeter, s.TotalVertices, s.Density)
		for i, st := range s.Strokes {
			fmt.Fprintf(&b, "    #%d at (%d,%d) %dx%d area %d perimeter %.1f vertices %d\n",
				i+1, st.Bounds.X1, st.Bounds.Y1, st.Bounds.Width(), st.Bounds.Height(), st.Area, st.Perimeter, st.Vertices)
		}
	}
	if ink := insp.Ink; ink != nil && ink.Pen != "" {
		top := ink.Colors[0]
		fmt.Fprintf(&b, "  %s %s pen (%s, %.0f%% of %d px)\n",
			labelStyle.Render("ink"), ink.Pen, top.Hex, top.Percentage, ink.InkPixels)
	}
	for _, f := range files {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("wrote"), f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
