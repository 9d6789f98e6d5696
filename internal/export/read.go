package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformedExport is returned by ReadCSV for input that is not an optimization export.
var ErrMalformedExport = errors.New("malformed optimization export")

// Table is a parsed export.
type Table struct {
	Machines []string
	Rows     []Row
}

// Row is one parsed export record.
type Row struct {
	Label    string
	Ratios   []float64
	Profit   float64
	Hashrate float64
	Power    float64
}

// Optimal reports whether the row carries the OPTIMAL label.
func (r Row) Optimal() bool {
	return r.Label == LabelOptimal
}

// ReadCSV parses an export written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading export")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrMalformedExport, "missing header")
	}

	header := records[0]
	if len(header) < 5 || header[0] != "Combination" {
		return nil, errors.Wrapf(ErrMalformedExport, "unexpected header %v", header)
	}
	dims := len(header) - 4
	t := &Table{Machines: make([]string, dims)}
	for i := 0; i < dims; i++ {
		col := header[i+1]
		if !strings.HasPrefix(col, ratioPrefix) {
			return nil, errors.Wrapf(ErrMalformedExport, "column %d is %q", i+1, col)
		}
		t.Machines[i] = strings.TrimPrefix(col, ratioPrefix)
	}

	for n, rec := range records[1:] {
		row := Row{Label: rec[0], Ratios: make([]float64, dims)}
		vals := make([]float64, len(rec)-1)
		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedExport, "row %d column %d: %v", n+1, i+1, err)
			}
			vals[i] = v
		}
		copy(row.Ratios, vals[:dims])
		row.Profit = vals[dims]
		row.Hashrate = vals[dims+1]
		row.Power = vals[dims+2]
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
