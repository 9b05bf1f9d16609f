package tracker

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/k2brd/k2brd/engine/card"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for formats other than json and csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a format name; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

var csvHeader = []string{
	"id", "name", "list_name", "project", "due_date", "effort", "github_repo",
	"impacted_assets", "stakeholders", "labels", "type", "priority", "description",
}

// Export writes cards in the requested format.
func Export(w io.Writer, cards []*card.Record, format Format) error {
	switch format {
	case FormatJSON:
		if cards == nil {
			cards = []*card.Record{}
		}
		return json.NewEncoder(w).Encode(cards)
	case FormatCSV:
		return writeCSV(w, cards)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func writeCSV(w io.Writer, cards []*card.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range cards {
		due := ""
		if c.DueDate != nil {
			due = c.DueDate.Format(time.RFC3339)
		}
		row := []string{
			c.ID, c.Name, c.ListName, c.Project, due, c.Effort, c.GithubRepo,
			strings.Join(c.ImpactedAssets, "; "),
			strings.Join(c.Stakeholders, "; "),
			strings.Join(c.Labels, "; "),
			c.Type, c.Priority, c.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for card %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
