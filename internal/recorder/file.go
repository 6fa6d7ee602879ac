package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"FactorForge/internal/database"
	"FactorForge/internal/model"

	"github.com/parquet-go/parquet-go"
)

// Format is the encoding of a FileRecorder.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

const dateFactorsFile = "date_factors"

// FileRecorder writes one file per instrument into a directory. A file is
// written to a temporary name and renamed, so readers never see a partial
// instrument.
type FileRecorder struct {
	dir    string
	format Format
}

// NewFileRecorder creates dir if needed.
func NewFileRecorder(format Format, dir string) (*FileRecorder, error) {
	switch format {
	case FormatCSV, FormatParquet:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileRecorder{dir: dir, format: format}, nil
}

// Path returns the file holding the factors of code.
func (r *FileRecorder) Path(code string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(code)
	return filepath.Join(r.dir, safe+"."+string(r.format))
}

func (r *FileRecorder) RecordFactors(_ context.Context, frame *model.FactorFrame) error {
	if err := checkColumns(frame.Columns); err != nil {
		return err
	}
	return r.writeAtomic(r.Path(frame.Code), func(w io.Writer) error {
		if r.format == FormatParquet {
			return writeFactorsParquet(w, frame)
		}
		return writeFactorsCSV(w, frame)
	})
}

func (r *FileRecorder) Recorded(_ context.Context, code string) (bool, error) {
	_, err := os.Stat(r.Path(code))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (r *FileRecorder) RecordDateFactors(_ context.Context, dates []model.DateFactor) error {
	path := filepath.Join(r.dir, dateFactorsFile+"."+string(r.format))
	return r.writeAtomic(path, func(w io.Writer) error {
		if r.format == FormatParquet {
			return parquet.Write(w, toDateRows(dates))
		}
		return writeDatesCSV(w, dates)
	})
}

func (r *FileRecorder) Close() error { return nil }

func (r *FileRecorder) writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(r.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeFactorsCSV(w io.Writer, frame *model.FactorFrame) error {
	cw := csv.NewWriter(w)
	header := append([]string{colCode, colDatetime}, frame.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range frame.Rows {
		record[0] = frame.Code
		record[1] = database.FormatDate(row.Date)
		for i, v := range row.Values {
			record[i+2] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDatesCSV(w io.Writer, dates []model.DateFactor) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colDatetime, "weekday", "day_of_week", "day_of_month", "month", "season"}); err != nil {
		return err
	}
	for _, d := range dates {
		if err := cw.Write([]string{
			database.FormatDate(d.Date),
			strconv.Itoa(d.Weekday),
			d.DayOfWeek,
			strconv.Itoa(d.DayOfMonth),
			strconv.Itoa(d.Month),
			d.Season,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// factorSchema has a required code and datetime plus one optional double per
// factor, so undefined values are stored as nulls.
func factorSchema(columns []string) *parquet.Schema {
	group := parquet.Group{
		colCode:     parquet.String(),
		colDatetime: parquet.String(),
	}
	for _, c := range columns {
		group[c] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
	return parquet.NewSchema("factors", group)
}

func writeFactorsParquet(w io.Writer, frame *model.FactorFrame) error {
	schema := factorSchema(frame.Columns)
	index := make(map[string]int, len(frame.Columns)+2)
	for i, f := range schema.Fields() {
		index[f.Name()] = i
	}

	pw := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, len(frame.Rows))
	for _, r := range frame.Rows {
		row := make(parquet.Row, len(index))
		row[index[colCode]] = parquet.ByteArrayValue([]byte(frame.Code)).Level(0, 0, index[colCode])
		row[index[colDatetime]] = parquet.ByteArrayValue([]byte(database.FormatDate(r.Date))).Level(0, 0, index[colDatetime])
		for j, c := range frame.Columns {
			col := index[c]
			v := r.Values[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[col] = parquet.NullValue().Level(0, 0, col)
			} else {
				row[col] = parquet.DoubleValue(v).Level(0, 1, col)
			}
		}
		rows = append(rows, row)
	}
	if _, err := pw.WriteRows(rows); err != nil {
		return err
	}
	return pw.Close()
}

type dateRow struct {
	Datetime   string `parquet:"datetime"`
	Weekday    int32  `parquet:"weekday"`
	DayOfWeek  string `parquet:"day_of_week"`
	DayOfMonth int32  `parquet:"day_of_month"`
	Month      int32  `parquet:"month"`
	Season     string `parquet:"season"`
}

func toDateRows(dates []model.DateFactor) []dateRow {
	out := make([]dateRow, len(dates))
	for i, d := range dates {
		out[i] = dateRow{
			Datetime:   database.FormatDate(d.Date),
			Weekday:    int32(d.Weekday),
			DayOfWeek:  d.DayOfWeek,
			DayOfMonth: int32(d.DayOfMonth),
			Month:      int32(d.Month),
			Season:     d.Season,
		}
	}
	return out
}
