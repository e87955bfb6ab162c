package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.Err, format, args...)
	}
}

// formatSize returns a human-readable size string (e.g. "1.5 KB").
func formatSize(bytes int64) string {
	s, err := transfer.FormatSize(bytes)
	if err != nil {
		return strconv.FormatInt(bytes, 10) + "B"
	}

	return s
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// newProgressPrinter renders upload progress on stderr: redrawn in place on
// a terminal, one line per chunk otherwise. Returns nil in quiet or JSON
// mode.
func newProgressPrinter(cc *CLIContext) transfer.ProgressFunc {
	if cc.Flags.Quiet || cc.Flags.JSON {
		return nil
	}

	return func(p transfer.Progress) {
		if !cc.Interactive {
			fmt.Fprintf(cc.Err, "%s: %s\n", p.Path, p)
			return
		}

		fmt.Fprintf(cc.Err, "\r\033[K%s: %s", p.Path, p)

		if p.Transferred == p.Total {
			fmt.Fprintln(cc.Err)
		}
	}
}

// resultJSON is the JSON output schema for one transfer result.
type resultJSON struct {
	Path             string `json:"path"`
	Success          bool   `json:"success"`
	BytesTransferred int64  `json:"bytes_transferred"`
	FailureDetail    string `json:"failure_detail,omitempty"`
}

// reportResults prints one line per result (or a JSON array) and returns
// errTransfersFailed when any result is a failure.
func reportResults(cc *CLIContext, verb string, results []transfer.Result) error {
	failures := 0

	for _, r := range results {
		if !r.Success {
			failures++
		}
	}

	if cc.Flags.JSON {
		out := make([]resultJSON, 0, len(results))
		for _, r := range results {
			out = append(out, resultJSON{
				Path:             r.Path,
				Success:          r.Success,
				BytesTransferred: r.BytesTransferred,
				FailureDetail:    r.FailureDetail,
			})
		}

		if err := printJSON(cc.Out, out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Success {
				cc.Statusf("%s %s (%s)\n", verb, r.Path, formatSize(r.BytesTransferred))
				continue
			}

			// Failures are printed even in quiet mode.
			fmt.Fprintf(cc.Err, "FAILED %s: %v\n", r.Path, r.Err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d of %d", errTransfersFailed, failures, len(results))
	}

	return nil
}
