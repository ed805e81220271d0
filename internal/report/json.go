package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/burrow/internal/media"
	"github.com/nao1215/burrow/internal/model"
)

// JSONWriter outputs entries as JSON for scripts and other tools.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is stamped on batch documents.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version recorded in batch documents.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one entry as a JSON object.
func (w *JSONWriter) Write(entry *Entry) (int, error) {
	return w.writeJSON(newJSONEntry(entry))
}

// WriteAll outputs a batch document holding every entry.
func (w *JSONWriter) WriteAll(entries []*Entry) (int, error) {
	doc := JSONBatch{
		Version:     w.version,
		GeneratedAt: time.Now().UTC(),
		Fetched:     len(entries) - countFailures(entries),
		Failed:      countFailures(entries),
		Results:     make([]JSONEntry, len(entries)),
	}
	for i, entry := range entries {
		doc.Results[i] = newJSONEntry(entry)
	}
	return w.writeJSON(doc)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONBatch is the document written by WriteAll.
type JSONBatch struct {
	Version     string      `json:"version,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Fetched     int         `json:"fetched"`
	Failed      int         `json:"failed"`
	Results     []JSONEntry `json:"results"`
}

// JSONEntry is the JSON form of an Entry.
type JSONEntry struct {
	Target    string         `json:"target"`
	URL       string         `json:"url"`
	Type      model.ItemType `json:"type"`
	Size      int64          `json:"size"`
	SHA256    string         `json:"sha256,omitempty"`
	FetchedAt *time.Time     `json:"fetched_at,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Items     []JSONItem     `json:"items,omitempty"`
	Text      string         `json:"text,omitempty"`
	SavedTo   string         `json:"saved_to,omitempty"`
	Image     *media.Info    `json:"image,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

// JSONItem is a menu item with its resolved target.
type JSONItem struct {
	model.Item
	URL string `json:"url,omitempty"`
}

func newJSONEntry(entry *Entry) JSONEntry {
	out := JSONEntry{
		Target:    entry.Target,
		URL:       entry.URL(),
		ElapsedMS: entry.Elapsed.Milliseconds(),
		SavedTo:   entry.SavedTo,
		Image:     entry.Image,
	}

	if entry.Err != nil {
		out.Type = entry.Address.ItemType()
		out.Error = entry.Err.Error()
		out.ErrorKind = entry.ErrorKind()
		return out
	}

	page := entry.Page
	if page == nil {
		return out
	}
	out.Type = page.Type
	out.Size = page.Size
	out.SHA256 = page.Hash
	if !page.FetchedAt.IsZero() {
		fetched := page.FetchedAt.UTC()
		out.FetchedAt = &fetched
	}
	if page.IsMenu() {
		out.Items = make([]JSONItem, len(page.Items))
		for i, item := range page.Items {
			out.Items[i] = JSONItem{Item: item, URL: item.ResolvedURL()}
		}
	}
	if entry.hasInlineText() {
		out.Text = page.Text()
	}
	return out
}
