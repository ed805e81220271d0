package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/burrow/internal/model"
)

// MarkdownWriter outputs entries as GitHub Flavored Markdown, for keeping
// notes on a gopherhole or sharing what a server returned.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one entry as a Markdown document.
func (w *MarkdownWriter) Write(entry *Entry) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(entry.URL())
	md.PlainText("")
	w.writeEntry(md, entry)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAll outputs a batch as one document with a section per entry.
func (w *MarkdownWriter) WriteAll(entries []*Entry) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("burrow fetch report")
	md.PlainText("")

	failed := countFailures(entries)
	md.Table(markdown.TableSet{
		Header: []string{"Fetched", "Failed"},
		Rows:   [][]string{{strconv.Itoa(len(entries) - failed), strconv.Itoa(failed)}},
	})
	md.PlainText("")

	for _, entry := range entries {
		md.H2(entry.URL())
		md.PlainText("")
		w.writeEntry(md, entry)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeEntry(md *markdown.Markdown, entry *Entry) {
	w.writeProperties(md, entry)

	switch {
	case entry.Err != nil:
		md.Cautionf("%s: %s", entry.ErrorKind(), entry.Err.Error())
		md.PlainText("")
	case entry.Page == nil:
	case entry.Page.IsMenu():
		w.writeMenu(md, entry.Page)
	case entry.hasInlineText():
		md.CodeBlocks(markdown.SyntaxHighlightText, strings.TrimRight(entry.Page.Text(), "\n"))
		md.PlainText("")
	default:
		w.writeBinary(md, entry)
	}
}

// writeProperties writes the fetch summary table.
func (w *MarkdownWriter) writeProperties(md *markdown.Markdown, entry *Entry) {
	rows := [][]string{
		{"Target", "`" + escapeCell(entry.Target) + "`"},
		{"Status", statusText(entry)},
		{"Elapsed", entry.Elapsed.Round(time.Millisecond).String()},
	}
	if page := entry.Page; page != nil {
		rows = append(rows,
			[]string{"Type", page.Type.String()},
			[]string{"Size", strconv.FormatInt(page.Size, 10) + " bytes"},
		)
		if page.Hash != "" {
			rows = append(rows, []string{"SHA-256", "`" + page.Hash + "`"})
		}
		if !page.FetchedAt.IsZero() {
			rows = append(rows, []string{"Fetched", page.FetchedAt.Format("2006-01-02 15:04:05 MST")})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(entry *Entry) string {
	if entry.Err != nil {
		return "❌ " + entry.ErrorKind()
	}
	return "✅ OK"
}

// writeMenu writes the menu as a table plus a chart of its link types.
func (w *MarkdownWriter) writeMenu(md *markdown.Markdown, page *model.Page) {
	md.H3("Menu")
	md.PlainText("")

	if len(page.Items) == 0 {
		md.PlainText("Empty menu.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(page.Items))
	link := 0
	for _, item := range page.Items {
		number, target := "", ""
		if item.IsNavigable() {
			link++
			number = strconv.Itoa(link)
			target = "`" + escapeCell(truncateString(item.ResolvedURL(), 70)) + "`"
		}
		rows = append(rows, []string{number, TypeLabel(item.Type), escapeCell(item.Display), target})
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Type", "Display", "Target"},
		Rows:   rows,
	})
	md.PlainText("")

	if link > 0 {
		w.writeTypeChart(md, page)
	}
}

// writeTypeChart writes a mermaid pie chart of the navigable item types.
func (w *MarkdownWriter) writeTypeChart(md *markdown.Markdown, page *model.Page) {
	counts := make(map[string]uint64)
	for _, item := range page.Links() {
		counts[TypeLabel(item.Type)]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link types"),
		piechart.WithShowData(true),
	)
	for _, label := range labels {
		chart.LabelAndIntValue(label, counts[label])
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeBinary(md *markdown.Markdown, entry *Entry) {
	if entry.SavedTo != "" {
		md.Note(fmt.Sprintf("Binary content saved to `%s`.", entry.SavedTo))
	} else {
		md.Note("Binary content is not shown inline.")
	}
	md.PlainText("")

	info := entry.Image
	if info == nil {
		return
	}

	md.H3("Image")
	md.PlainText("")
	md.PlainTextf("%s, %d x %d", info.Format, info.Width, info.Height)
	md.PlainText("")

	if sensitive := info.SensitiveTags(); len(sensitive) > 0 {
		md.Warningf("%d EXIF tag(s) can identify a person, device or place.", len(sensitive))
		md.PlainText("")
	}
	if len(info.Tags) == 0 {
		return
	}

	rows := make([][]string, len(info.Tags))
	for i, tag := range info.Tags {
		name := tag.Name
		if tag.Sensitive {
			name = "**" + name + "**"
		}
		rows[i] = []string{tag.IFD, name, escapeCell(truncateString(tag.Value, 60))}
	}
	md.Table(markdown.TableSet{
		Header: []string{"IFD", "Tag", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [burrow](%s)*", projectURL)
}

// projectURL is linked from report footers.
const projectURL = "https://github.com/nao1215/burrow"

// escapeCell keeps pipes in menu text from splitting table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString shortens s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
