// package formatter renders watchlists and planned records as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// Format is an output format name.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// listSeparator joins multi-valued columns in CSV and text output
const listSeparator = "; "

// Formats lists the accepted format names.
func Formats() []string {
	return []string{string(JSON), string(CSV), string(Markdown), string(Text)}
}

// ParseFormat maps a flag value onto a [Format]. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, s, strings.Join(Formats(), ", "))
	}
}

// WatchlistToJSON renders entries as an indented JSON array.
func WatchlistToJSON(entries []*models.WatchlistEntry) ([]byte, error) {
	if entries == nil {
		entries = []*models.WatchlistEntry{}
	}
	return marshalJSON(entries)
}

// WatchlistToCSV renders entries with columns: Slug, Title, Genres, Services
func WatchlistToCSV(entries []*models.WatchlistEntry) ([]byte, error) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Slug, e.Title, join(e.Genres), join(e.Services)})
	}
	return writeCSV([]string{"Slug", "Title", "Genres", "Services"}, rows)
}

// WatchlistToMarkdown renders entries as a numbered list under heading.
func WatchlistToMarkdown(heading string, entries []*models.WatchlistEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", heading))
	buf.WriteString(fmt.Sprintf("**Films**: %d\n\n", len(entries)))

	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. **%s** (`%s`)", i+1, e.Title, e.Slug))
		if len(e.Genres) > 0 {
			buf.WriteString(fmt.Sprintf(" · %s", strings.Join(e.Genres, ", ")))
		}
		if len(e.Services) > 0 {
			buf.WriteString(fmt.Sprintf(" · streaming on %s", strings.Join(e.Services, ", ")))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// WatchlistToText renders one line per entry.
func WatchlistToText(entries []*models.WatchlistEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Films: %d\n\n", len(entries)))
	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]", i+1, e.Title, e.Slug))
		if len(e.Genres) > 0 {
			buf.WriteString(" genres: " + join(e.Genres))
		}
		if len(e.Services) > 0 {
			buf.WriteString(" services: " + join(e.Services))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// RecordsToJSON renders records as an indented JSON array.
func RecordsToJSON(records []*models.RemoteRecord) ([]byte, error) {
	if records == nil {
		records = []*models.RemoteRecord{}
	}
	return marshalJSON(records)
}

// RecordsToCSV renders records with columns: Title, Type, Categories, Sources
func RecordsToCSV(records []*models.RemoteRecord) ([]byte, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Title, r.Type, join(r.Categories), join(r.Sources)})
	}
	return writeCSV([]string{"Title", "Type", "Categories", "Sources"}, rows)
}

// RecordsToMarkdown renders records as a Markdown table.
func RecordsToMarkdown(heading string, records []*models.RemoteRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", heading))
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(records)))
	if len(records) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Title | Type | Categories | Sources |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, r := range records {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeCell(r.Title), escapeCell(r.Type),
			escapeCell(strings.Join(r.Categories, ", ")), escapeCell(strings.Join(r.Sources, ", "))))
	}

	return buf.Bytes(), nil
}

// RecordsToText renders one line per record.
func RecordsToText(records []*models.RemoteRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Records: %d\n\n", len(records)))
	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)", i+1, r.Title, r.Type))
		if len(r.Categories) > 0 {
			buf.WriteString(" categories: " + join(r.Categories))
		}
		if len(r.Sources) > 0 {
			buf.WriteString(" sources: " + join(r.Sources))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// TitlesToText renders a list of titles, one per line.
func TitlesToText(titles []string) []byte {
	var buf bytes.Buffer
	for _, t := range titles {
		buf.WriteString(t)
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteWatchlist renders entries in format to w.
func WriteWatchlist(w io.Writer, format Format, heading string, entries []*models.WatchlistEntry) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case JSON:
		data, err = WatchlistToJSON(entries)
	case CSV:
		data, err = WatchlistToCSV(entries)
	case Markdown:
		data, err = WatchlistToMarkdown(heading, entries)
	default:
		data, err = WatchlistToText(entries)
	}
	if err != nil {
		return err
	}
	return write(w, data)
}

// WriteRecords renders records in format to w.
func WriteRecords(w io.Writer, format Format, heading string, records []*models.RemoteRecord) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case JSON:
		data, err = RecordsToJSON(records)
	case CSV:
		data, err = RecordsToCSV(records)
	case Markdown:
		data, err = RecordsToMarkdown(heading, records)
	default:
		data, err = RecordsToText(records)
	}
	if err != nil {
		return err
	}
	return write(w, data)
}

// WriteFile writes rendered output to path.
//
// Defaults to {base}.{ext} for the format when path is empty.
func WriteFile(path, base string, format Format, data []byte) (string, error) {
	if path == "" {
		path = base + "." + Extension(format)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

// Extension returns the file extension used for format.
func Extension(format Format) string {
	switch format {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	default:
		return "txt"
	}
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func join(values []string) string {
	return strings.Join(values, listSeparator)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
