package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/burrow/internal/media"
	"github.com/nao1215/burrow/internal/model"
)

// SimpleWriter outputs pages as plain terminal text.
// Menus print one item per line; navigable items carry a type label and,
// with numbering on, the index the browse command accepts.
type SimpleWriter struct {
	baseWriter

	// numbered prefixes navigable items with their 1-based link index.
	numbered bool

	// showURLs prints the resolved target after each navigable item.
	showURLs bool

	// previewWidth renders image pages as character art when positive.
	previewWidth int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithNumbering prefixes navigable menu items with their link index.
func WithNumbering(numbered bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.numbered = numbered
	}
}

// WithShowURLs prints each navigable item's resolved URL.
func WithShowURLs(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showURLs = show
	}
}

// WithImagePreview renders image pages as character art up to width columns.
func WithImagePreview(width int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.previewWidth = width
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one entry.
func (w *SimpleWriter) Write(entry *Entry) (int, error) {
	var sb strings.Builder
	w.writeEntry(&sb, entry)
	return io.WriteString(w.output, sb.String())
}

// WriteAll outputs each entry under a header line, then a one-line summary.
func (w *SimpleWriter) WriteAll(entries []*Entry) (int, error) {
	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
		sb.WriteString(entry.URL())
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
		w.writeEntry(&sb, entry)
	}

	if len(entries) > 1 {
		failed := countFailures(entries)
		fmt.Fprintf(&sb, "\n%d fetched, %d failed\n", len(entries)-failed, failed)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeEntry(sb *strings.Builder, entry *Entry) {
	switch {
	case entry.Err != nil:
		fmt.Fprintf(sb, "error: %s: %v\n", entry.ErrorKind(), entry.Err)
	case entry.Page == nil:
		sb.WriteString("error: no page\n")
	case entry.Page.IsMenu():
		w.writeMenu(sb, entry.Page)
	case entry.hasInlineText():
		w.writeText(sb, entry.Page)
	default:
		w.writeBinary(sb, entry)
	}
}

// writeMenu prints menu items. Info lines are indented to line up with the
// display text of navigable items.
func (w *SimpleWriter) writeMenu(sb *strings.Builder, page *model.Page) {
	indent := strings.Repeat(" ", len(w.prefix(0, model.ItemTypeMenu)))
	link := 0
	for _, item := range page.Items {
		switch {
		case item.Type == model.ItemTypeInformation:
			sb.WriteString(indent + item.Display + "\n")
		case item.IsNavigable():
			link++
			sb.WriteString(w.prefix(link, item.Type) + item.Display)
			if w.showURLs {
				sb.WriteString("  <" + item.ResolvedURL() + ">")
			}
			sb.WriteString("\n")
		default:
			sb.WriteString(indent + item.Display + "\n")
		}
	}
}

// prefix returns the column before a navigable item's display text.
func (w *SimpleWriter) prefix(n int, t model.ItemType) string {
	label := fmt.Sprintf("%-6s ", TypeLabel(t))
	if !w.numbered {
		return label
	}
	if n == 0 {
		return strings.Repeat(" ", 7) + label
	}
	return fmt.Sprintf("[%4d] ", n) + label
}

func (w *SimpleWriter) writeText(sb *strings.Builder, page *model.Page) {
	text := page.Text()
	sb.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeBinary(sb *strings.Builder, entry *Entry) {
	page := entry.Page
	fmt.Fprintf(sb, "%s item, %d bytes\n", TypeLabel(page.Type), page.Size)
	if page.Hash != "" {
		fmt.Fprintf(sb, "sha256: %s\n", page.Hash)
	}
	if entry.SavedTo != "" {
		fmt.Fprintf(sb, "saved to %s\n", entry.SavedTo)
	}

	if info := entry.Image; info != nil {
		fmt.Fprintf(sb, "image: %s %dx%d\n", info.Format, info.Width, info.Height)
		if sensitive := info.SensitiveTags(); len(sensitive) > 0 {
			fmt.Fprintf(sb, "warning: %d identifying EXIF tag(s)\n", len(sensitive))
			for _, tag := range sensitive {
				fmt.Fprintf(sb, "  %s: %s\n", tag.Name, tag.Value)
			}
		}
	}

	if w.previewWidth > 0 && page.Type.IsImage() && page.Raw != nil {
		if art, err := media.Preview(page.Raw, w.previewWidth); err == nil {
			sb.WriteString(art)
		}
	}
}

// TypeLabel returns the short uppercase label used in menu listings.
func TypeLabel(t model.ItemType) string {
	switch t {
	case model.ItemTypeMenu:
		return "DIR"
	case model.ItemTypeTextFile:
		return "TXT"
	case model.ItemTypeFullTextSearch:
		return "SEARCH"
	case model.ItemTypeHTML:
		return "HTML"
	case model.ItemTypeGif, model.ItemTypeImage:
		return "IMG"
	case model.ItemTypeSound:
		return "SND"
	case model.ItemTypeTelnet, model.ItemTypeTelnet3270:
		return "TELNET"
	case model.ItemTypeCcsoNameserver:
		return "CCSO"
	case model.ItemTypeErrorCode:
		return "ERR"
	case model.ItemTypeMirror:
		return "MIRROR"
	case model.ItemTypeBinHex, model.ItemTypeDosFile, model.ItemTypeUuEncoded, model.ItemTypeBinaryFile:
		return "BIN"
	default:
		return "?"
	}
}
