// Package cli provides CLI output helpers for kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText prints the answer sentences, one per line (default).
	OutputText OutputFormat = "text"
	// OutputVerbose prints the ranked documents and sentences with their scores.
	OutputVerbose OutputFormat = "verbose"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputVerbose, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, verbose or json)", s)
	}
}

// WriteAnswer writes answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	case OutputVerbose:
		return writeVerbose(w, answer)
	default:
		for _, s := range answer.Sentences {
			if _, err := fmt.Fprintln(w, s.Text); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeVerbose(w io.Writer, answer *models.Answer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\nTokens: %s (%dms)\n", strings.Join(answer.Tokens, ", "), answer.QueryTimeMs)
	fmt.Fprintln(&b, "--- Documents ---")
	for _, d := range answer.Documents {
		fmt.Fprintf(&b, "%d. %s  tf-idf=%.4f\n", d.Rank, d.ID, d.Score)
	}
	fmt.Fprintln(&b, "--- Sentences ---")
	if len(answer.Sentences) == 0 {
		fmt.Fprintln(&b, "(no sentences)")
	}
	for _, s := range answer.Sentences {
		fmt.Fprintf(&b, "%d. [%s] idf=%.4f density=%.4f\n   %s\n", s.Rank, s.DocumentID, s.MatchedIDF, s.Density, s.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
