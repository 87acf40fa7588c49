// Package csvexport writes record collections and parameter maps as CSV files.
//
// Columns are described by an explicit Schema per record type; nothing is
// discovered by reflection. Values are trimmed and quoted when they contain a
// comma, a quote or a line break, with embedded quotes doubled.
package csvexport

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	ParametersFile = "simulation_parameters.csv"
	DataFile       = "simulation_data.csv"
)

// Field is one named column of a record type.
type Field[T any] struct {
	Name  string
	Value func(T) string
}

// Schema is the ordered list of columns written for a record type.
type Schema[T any] []Field[T]

func (s Schema[T]) Header() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = strings.TrimSpace(f.Name)
	}
	return names
}

func (s Schema[T]) Row(rec T) []string {
	row := make([]string, len(s))
	for i, f := range s {
		row[i] = strings.TrimSpace(f.Value(rec))
	}
	return row
}

// Exporter writes files into Dir.
type Exporter struct {
	Dir string

	create func(path string) (io.WriteCloser, error)
}

func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// WriteRecords writes a header row followed by one row per record and returns
// the file path. An empty collection produces a header-only file.
func WriteRecords[T any](e *Exporter, name string, schema Schema[T], records []T) (string, error) {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, schema.Header())
	for _, rec := range records {
		rows = append(rows, schema.Row(rec))
	}
	return e.write(name, rows)
}

// WriteParameters writes the keys as a header row and the values as a single
// data row, in key order. Keys listed in exclude are left out. An empty map
// produces an empty file.
func (e *Exporter) WriteParameters(name string, params map[string]string, exclude ...string) (string, error) {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return e.write(name, nil)
	}

	header := make([]string, len(keys))
	values := make([]string, len(keys))
	for i, k := range keys {
		header[i] = strings.TrimSpace(k)
		values[i] = strings.TrimSpace(params[k])
	}
	return e.write(name, [][]string{header, values})
}

func (e *Exporter) write(name string, rows [][]string) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", errors.Wrapf(err, "create export dir %s", e.Dir)
	}

	path := filepath.Join(e.Dir, name)
	create := e.create
	if create == nil {
		create = func(path string) (io.WriteCloser, error) { return os.Create(path) }
	}
	f, err := create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}
	return path, nil
}

// ReadAll parses a file written by an Exporter.
func ReadAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return rows, nil
}
