// Package cli provides CLI output formatting for Tansaku.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line, for piping into other tools.
	OutputCompact OutputFormat = "compact"
)

// ParseFormat validates a format string from a CLI flag.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON, OutputCompact:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, m := range response.Matches {
			fmt.Fprintf(w, "%.4f\t%s\n", m.Score, m.Path)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results\n\n", len(response.Matches))
	for i, m := range response.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, m.Score)
		fmt.Fprintf(w, "Path: %s (%d lines, %d bytes)\n", m.Path, m.LineCount, m.FileSize)
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(m.Snippet, 200))
		fmt.Fprintln(w)
	}
}

// WriteEntries writes a directory listing to w in the given format.
func WriteEntries(w io.Writer, response *models.ListResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		for _, e := range response.Entries {
			if e.Type == models.EntryTypeDir {
				fmt.Fprintf(w, "%-4s %10s  %s\n", e.Type, "-", e.Path)
			} else {
				fmt.Fprintf(w, "%-4s %10d  %s\n", e.Type, e.Size, e.Path)
			}
		}
		return nil
	}
}
