package render

import (
	"fmt"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// DataTable is the tabular form of a window result. When marshaled as
// JSON it is suitable for handing straight to a charting library on the
// dashboard page, and the console renderer walks the same rows.
type DataTable struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

// Column describes one table column.
type Column struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Row is one reading rendered as cells, in column order.
type Row struct {
	Cells []Cell `json:"c"`
}

// Cell holds a single value. Timestamps are RFC 3339 strings in UTC,
// measurements are numbers.
type Cell struct {
	Value any `json:"v"`
}

// Column types understood by the dashboard chart.
const (
	TNumber   = "number"
	TDatetime = "datetime"
)

// Columns returns the fixed column set for reading tables: a timestamp
// followed by one number column per field, labeled with its unit.
func Columns() []Column {
	cols := []Column{{Type: TDatetime, ID: "timestamp", Label: "Timestamp"}}
	for _, f := range (reading.Reading{}).Fields() {
		label := fmt.Sprintf("%s (%s)", f.Label, f.Unit)
		cols = append(cols, Column{Type: TNumber, ID: f.Name, Label: label})
	}
	return cols
}

// Tabulate converts readings into a DataTable, preserving their order.
func Tabulate(rs []reading.Reading) DataTable {
	t := DataTable{Cols: Columns(), Rows: make([]Row, 0, len(rs))}
	for _, r := range rs {
		cells := []Cell{{Value: r.Timestamp.UTC().Format(time.RFC3339)}}
		for _, f := range r.Fields() {
			cells = append(cells, Cell{Value: f.Value})
		}
		t.Rows = append(t.Rows, Row{Cells: cells})
	}
	return t
}
