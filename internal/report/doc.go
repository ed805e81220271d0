// Package report renders fetched Gopher pages for people and for tools.
//
// Three writers share the Writer interface:
//   - SimpleWriter: terminal output, with numbered links for interactive browsing
//   - JSONWriter: one JSON document per page or per batch
//   - MarkdownWriter: GitHub Flavored Markdown with tables, alerts and a type chart
//
// Writers take an Entry, which pairs the target as the user typed it with
// the page or error it produced.
package report
