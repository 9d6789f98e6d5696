package export

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"farm-dashboard/internal/optimization"
)

const (
	LabelOptimal = "OPTIMAL"
	testPrefix   = "Test_"
	ratioPrefix  = "Ratio_"
)

// Header returns the column names of an export of rs:
// Combination, one Ratio_<machine> per dimension, then the three run totals.
func Header(rs *optimization.ResultSet) []string {
	names := rs.MachineNames()
	header := make([]string, 0, len(names)+4)
	header = append(header, "Combination")
	for _, n := range names {
		header = append(header, ratioPrefix+n)
	}
	return append(header, "Profit_Total", "Hashrate_Total", "Power_Total")
}

// Rows returns one record per combination, best profit first.
// A row is labeled OPTIMAL when it matches the run's best profit, otherwise Test_<rank>
// where rank is its 1-based position in the sorted output.
func Rows(rs *optimization.ResultSet) [][]string {
	sorted := rs.SortedByProfitDescending()
	rows := make([][]string, 0, len(sorted))
	for i, c := range sorted {
		label := testPrefix + strconv.Itoa(i+1)
		if rs.IsBest(c.DailyProfit) {
			label = LabelOptimal
		}
		row := make([]string, 0, len(c.Ratios)+4)
		row = append(row, label)
		for _, r := range c.Ratios {
			row = append(row, fmtFixed(r, 3))
		}
		row = append(row,
			fmtFixed(c.DailyProfit, 4),
			fmtFixed(c.TotalHashrate, 2),
			fmtFixed(math.Round(c.TotalPower), 0),
		)
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the full export of rs to w.
// Machine names are written as-is; they are expected not to contain commas.
func WriteCSV(w io.Writer, rs *optimization.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(rs)); err != nil {
		return err
	}
	for _, row := range Rows(rs) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(path string, rs *optimization.ResultSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, rs); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the download name for a site's export on the given day.
func FileName(siteName string, day time.Time) string {
	site := strings.Trim(unsafeFileChars.ReplaceAllString(siteName, "_"), "_")
	if site == "" {
		site = "site"
	}
	return "global_optimization_" + site + "_" + day.Format("2006-01-02") + ".csv"
}

func fmtFixed(x float64, prec int) string {
	return strconv.FormatFloat(x, 'f', prec, 64)
}
