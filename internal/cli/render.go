package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// renderer writes results either as a go-pretty table or as indented JSON.
type renderer struct {
	w    io.Writer
	json bool
}

func (r *renderer) encode(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Records renders rows with the given column order.
func (r *renderer) Records(cols []string, records []core.Record) error {
	if r.json {
		if records == nil {
			records = []core.Record{}
		}
		return r.encode(records)
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(r.w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(rec[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(r.w, "(%d rows)\n", len(records))
	return nil
}

// Schema renders the columns of a table.
func (r *renderer) Schema(ts *core.TableSchema) error {
	if r.json {
		return r.encode(ts)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(ts.Name)
	t.AppendHeader(table.Row{"column", "type", "length", "nullable", "unique", "key", "default"})
	for _, col := range ts.Columns {
		length := ""
		if col.Type == core.TypeString {
			length = strconv.Itoa(col.Length)
		}
		key := ""
		if col.PrimaryKey {
			key = "PK"
			if col.AutoIncrement {
				key += " auto"
			}
		}
		t.AppendRow(table.Row{col.Name, string(col.Type), length, col.Nullable, col.Unique, key, col.ServerDefault})
	}
	t.Render()
	return nil
}

// Names renders a single-column list.
func (r *renderer) Names(header string, names []string) error {
	if r.json {
		if names == nil {
			names = []string{}
		}
		return r.encode(names)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{header})
	for _, name := range names {
		t.AppendRow(table.Row{name})
	}
	t.Render()
	return nil
}

// Result renders a small keyed outcome such as {"table": "users", "dropped": true}.
func (r *renderer) Result(fields map[string]interface{}, text string) error {
	if r.json {
		return r.encode(fields)
	}
	_, err := fmt.Fprintln(r.w, text)
	return err
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
