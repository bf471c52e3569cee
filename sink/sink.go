// Package sink persists benchmark records as timestamped delimited text
// files.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/weiihann/sparsebench/harness"
)

// TimestampLayout is the timestamp embedded in output file names.
const TimestampLayout = "2006-01-02_15-04-05"

var (
	// ErrEmptyResult is returned when there are no records to write.
	ErrEmptyResult = errors.New("no records to write")

	// ErrSchemaMismatch is returned when a record's fields differ from the
	// header taken from the first record.
	ErrSchemaMismatch = errors.New("record schema differs from header")
)

// Writer writes record sets to files in Dir.
type Writer struct {
	// Dir is the output directory; the working directory when empty.
	Dir string

	// Delimiter separates fields; tab when zero.
	Delimiter rune

	// Now stamps file names; time.Now when nil.
	Now func() time.Time
}

// Extension returns the file extension for a delimiter: tsv for tab, csv
// for comma, txt otherwise.
func Extension(delim rune) string {
	switch delim {
	case '\t':
		return "tsv"
	case ',':
		return "csv"
	default:
		return "txt"
	}
}

func (w *Writer) delimiter() rune {
	if w.Delimiter == 0 {
		return '\t'
	}

	return w.Delimiter
}

// Path returns the file name Write would use for base at time t.
func (w *Writer) Path(base string, t time.Time) string {
	name := fmt.Sprintf("%s_%s.%s",
		base, t.Format(TimestampLayout), Extension(w.delimiter()))

	return filepath.Join(w.Dir, name)
}

// Write persists records under base and returns the path written. The
// header is the first record's keys. The file is never overwritten or
// appended to, and is removed again if writing fails partway.
func (w *Writer) Write(base string, records []harness.Record) (path string, err error) {
	if len(records) == 0 {
		return "", fmt.Errorf("%s: %w", base, ErrEmptyResult)
	}

	header := records[0].Keys()

	for i, r := range records[1:] {
		if keys := r.Keys(); !slices.Equal(keys, header) {
			return "", fmt.Errorf("%s: record %d: %w: got %v, want %v",
				base, i+1, ErrSchemaMismatch, keys, header)
		}
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	path = w.Path(base, now())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}

		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	cw := csv.NewWriter(f)
	cw.Comma = w.delimiter()

	if err := cw.Write(header); err != nil {
		return path, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))

	for i, r := range records {
		for j, field := range r.Fields() {
			row[j] = FormatValue(field.Value)
		}

		if err := cw.Write(row); err != nil {
			return path, fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return path, fmt.Errorf("flush %s: %w", path, err)
	}

	return path, nil
}

// FormatValue renders a record value as a single field. Shapes render as
// "(r, c)" and floats use the shortest representation that round-trips.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []int:
		parts := make([]string, len(x))
		for i, d := range x {
			parts[i] = strconv.Itoa(d)
		}

		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}

		return "(" + strings.Join(parts, ", ") + ")"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
