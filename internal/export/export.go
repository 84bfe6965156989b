// Package export converts stitched documents into Arrow IPC files so the
// datasets can be loaded by columnar tooling (pandas, polars, DuckDB).
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/sweepgen/internal/stitch"
)

// Schema metadata keys.
const (
	MetaTestBed = "sweepgen.test_bed"
	MetaSwept   = "sweepgen.swept"
)

// Column names.
const (
	ColStep   = "step"
	ColValue  = "value"
	ColValues = "values"
	ColRaw    = "raw"
)

// Ext is the exported file extension.
const Ext = ".arrow"

// Schema returns the export schema carrying the test bed as metadata.
// Scalar numeric results fill "value", numeric arrays fill "values"; "raw"
// always holds the artifact's JSON.
func Schema(testBed []byte, swept []string) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{MetaTestBed, MetaSwept},
		[]string{string(testBed), strings.Join(swept, "\n")},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: ColStep, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColValue, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: ColValues, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
		{Name: ColRaw, Type: arrow.BinaryTypes.String},
	}, &md)
}

// Record builds one record holding every artifact of doc. The caller must
// Release it.
func Record(doc *stitch.Document, mem memory.Allocator) (arrow.Record, error) {
	tb, err := json.Marshal(doc.TestBed)
	if err != nil {
		return nil, fmt.Errorf("encoding test bed: %w", err)
	}
	b := array.NewRecordBuilder(mem, Schema(tb, doc.Swept()))
	defer b.Release()

	steps := b.Field(0).(*array.Int64Builder)
	value := b.Field(1).(*array.Float64Builder)
	values := b.Field(2).(*array.ListBuilder)
	elems := values.ValueBuilder().(*array.Float64Builder)
	raw := b.Field(3).(*array.StringBuilder)

	for i, a := range doc.Artifacts {
		steps.Append(int64(i))
		raw.Append(string(a))

		trimmed := bytes.TrimSpace(a)
		var scalar float64
		if isNumber(trimmed) && json.Unmarshal(trimmed, &scalar) == nil {
			value.Append(scalar)
		} else {
			value.AppendNull()
		}

		var vec []float64
		if len(trimmed) > 0 && trimmed[0] == '[' && json.Unmarshal(trimmed, &vec) == nil {
			values.Append(true)
			elems.AppendValues(vec, nil)
		} else {
			values.AppendNull()
		}
	}
	return b.NewRecord(), nil
}

func isNumber(b []byte) bool {
	return len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9'))
}

// Result describes a written export.
type Result struct {
	Path string `json:"path"`
	Rows int64  `json:"rows"`
}

// WriteFile exports doc to path as an Arrow IPC file.
func WriteFile(doc *stitch.Document, path string) (*Result, error) {
	mem := memory.NewGoAllocator()
	rec, err := Record(doc, mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("opening arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("writing record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing arrow writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing export file: %w", err)
	}
	return &Result{Path: path, Rows: rec.NumRows()}, nil
}

// Table is an export read back into Go values.
type Table struct {
	TestBed json.RawMessage
	Swept   []string
	Steps   []int64
	// Values holds nil where the artifact was not a number.
	Values []*float64
	Raw    []string
}

// ReadFile loads an export written by WriteFile.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening arrow reader: %w", err)
	}
	defer r.Close()

	md := r.Schema().Metadata()
	t := &Table{}
	if i := md.FindKey(MetaTestBed); i >= 0 {
		t.TestBed = json.RawMessage(md.Values()[i])
	} else {
		return nil, errors.New("export has no test bed metadata")
	}
	if i := md.FindKey(MetaSwept); i >= 0 && md.Values()[i] != "" {
		t.Swept = strings.Split(md.Values()[i], "\n")
	}

	for n := 0; n < r.NumRecords(); n++ {
		rec, err := r.Record(n)
		if err != nil {
			return nil, fmt.Errorf("reading record %d: %w", n, err)
		}
		steps := rec.Column(0).(*array.Int64)
		value := rec.Column(1).(*array.Float64)
		raw := rec.Column(3).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			t.Steps = append(t.Steps, steps.Value(i))
			t.Raw = append(t.Raw, raw.Value(i))
			if value.IsNull(i) {
				t.Values = append(t.Values, nil)
				continue
			}
			v := value.Value(i)
			t.Values = append(t.Values, &v)
		}
	}
	return t, nil
}

// PathFor maps a stitched document path to its export path.
func PathFor(docPath string) string {
	return strings.TrimSuffix(docPath, filepath.Ext(docPath)) + Ext
}
