package export

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown renders the report as a markdown document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title())

	b.WriteString("## Summary\n\n")
	table(&b, []string{"Metric", "Value"}, pairs(summaryRows(r)))

	if len(r.Profile.Warnings) > 0 {
		b.WriteString("## Data Quality Warnings\n\n")
		for _, w := range r.Profile.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Column Quality\n\n")
	rows := make([][]string, len(r.Profile.Quality))
	for i, q := range r.Profile.Quality {
		rows[i] = qualityRow(q)
	}
	table(&b, qualityHeaders, rows)

	if len(r.Profile.Numeric) > 0 {
		b.WriteString("## Descriptive Statistics\n\n")
		rows := make([][]string, len(r.Profile.Numeric))
		for i, s := range r.Profile.Numeric {
			rows[i] = statisticsRow(s)
		}
		table(&b, statisticsHeaders, rows)
	}

	if m := r.Correlations; m != nil && len(m.Columns) > 1 {
		b.WriteString("## Correlations\n\n")
		table(&b, append([]string{""}, m.Columns...), correlationRows(m))
		if pairs := m.StrongestPairs(0.5); len(pairs) > 0 {
			b.WriteString("Strong correlations:\n\n")
			for _, p := range pairs {
				fmt.Fprintf(&b, "- %s and %s: %.3f\n", p.A, p.B, p.Coefficient)
			}
			b.WriteString("\n")
		}
	}

	if in := r.Insights; in != nil && strings.TrimSpace(in.Text) != "" {
		b.WriteString("## Insights\n\n")
		b.WriteString(strings.TrimSpace(in.Text))
		b.WriteString("\n\n")
		for _, h := range in.Highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		if len(in.Highlights) > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "_Source: %s_\n", in.Source)
	}
	return b.String()
}

// RenderHTML renders the markdown report as a standalone HTML page.
func RenderHTML(r *Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: r.title(),
	})
	return markdown.ToHTML([]byte(RenderMarkdown(r)), p, renderer)
}

func pairs(rows [][2]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r[0], r[1]}
	}
	return out
}

func table(b *strings.Builder, headers []string, rows [][]string) {
	b.WriteString("| " + strings.Join(escapeAll(headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(escapeAll(row), " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escapeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " ")
	}
	return out
}
