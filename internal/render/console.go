package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// Console renders snapshots as aligned text tables on a writer. It is
// what the "window" and "latest" commands print, and what "stream"
// shows when asked to echo.
type Console struct {
	w  io.Writer
	pr *message.Printer
}

// NewConsole returns a console renderer writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, pr: message.NewPrinter(language.English)}
}

// Render writes the snapshot as text. Rendering the unavailable and
// empty states is part of the contract, so neither returns an error.
func (c *Console) Render(_ context.Context, s Snapshot) error {
	if s.Unavailable {
		fmt.Fprintf(c.w, "store unavailable: %s\n", s.Error)
		return nil
	}

	fmt.Fprintf(c.w, "Window: last %dh, limit %d, cutoff %s\n",
		s.Window.LookbackHours, s.Window.Limit, s.Window.Cutoff.UTC().Format(timeLayout))

	if s.Empty() {
		fmt.Fprintln(c.w, `No readings in the window. Backfill history with "weatherdeck seed" or start "weatherdeck stream".`)
		return nil
	}

	if s.Latest != nil {
		fmt.Fprintf(c.w, "Latest: %s\n", FormatLatest(*s.Latest, s.References))
	}
	fmt.Fprintln(c.w)

	tw := tabwriter.NewWriter(c.w, 0, 4, 2, ' ', 0)
	for i, col := range s.Table.Cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col.Label)
	}
	fmt.Fprintln(tw)
	for _, row := range s.Table.Rows {
		for i, cell := range row.Cells {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatCell(cell))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	fmt.Fprintln(c.w)
	c.pr.Fprintf(c.w, "%d readings shown, %d stored\n", s.Rows, s.TotalRows)
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

func formatCell(cell Cell) string {
	switch v := cell.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return fmt.Sprint(v)
	}
}

// FormatLatest renders the most recent reading with per-field deltas
// against the reference values, e.g. "21.30 °C (+1.30)".
func FormatLatest(latest reading.Reading, refs []reading.Field) string {
	out := ""
	for i, f := range latest.Fields() {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%.2f %s (%+.2f)", f.Value, f.Unit, f.Value-refs[i].Value)
	}
	return out + " at " + latest.Timestamp.UTC().Format(timeLayout)
}
