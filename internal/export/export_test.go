package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/sweepgen/internal/stitch"
)

const sampleDoc = "[\n" +
	`{"node count":100,"leak rate":[0.1,0.3,0.1],"history_length":2}` + ",\n" +
	"0.5,\n[1,2],\n{\"k\":true},\nnull\n]\n"

func parse(t *testing.T) *stitch.Document {
	t.Helper()
	doc, err := stitch.ParseDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

func TestRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := Record(parse(t), mem)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 4 {
		t.Fatalf("NumRows() = %d, want 4", rec.NumRows())
	}
	value := rec.Column(1).(*array.Float64)
	if value.IsNull(0) || value.Value(0) != 0.5 {
		t.Errorf("value[0] = %v, want 0.5", value.Value(0))
	}
	for i := 1; i < 4; i++ {
		if !value.IsNull(i) {
			t.Errorf("value[%d] should be null", i)
		}
	}

	values := rec.Column(2).(*array.List)
	if values.IsNull(0) || !values.IsNull(2) || !values.IsNull(3) {
		t.Error("only array artifacts should fill the values column")
	}
	start, end := values.ValueOffsets(1)
	elems := values.ListValues().(*array.Float64)
	if end-start != 2 || elems.Value(int(start)) != 1 || elems.Value(int(start)+1) != 2 {
		t.Errorf("values[1] offsets %d..%d", start, end)
	}

	md := rec.Schema().Metadata()
	if i := md.FindKey(MetaSwept); i < 0 || md.Values()[i] != "leak rate" {
		t.Errorf("swept metadata = %v", md)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "leak_rate"+Ext)
	res, err := WriteFile(parse(t), path)
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if res.Rows != 4 || res.Path != path {
		t.Errorf("Result = %+v", res)
	}

	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(tbl.Steps) != 4 || tbl.Steps[3] != 3 {
		t.Errorf("steps = %v", tbl.Steps)
	}
	if tbl.Values[0] == nil || *tbl.Values[0] != 0.5 || tbl.Values[1] != nil {
		t.Errorf("values = %v", tbl.Values)
	}
	if tbl.Raw[2] != `{"k":true}` || tbl.Raw[3] != "null" {
		t.Errorf("raw = %q", tbl.Raw)
	}
	if len(tbl.Swept) != 1 || tbl.Swept[0] != "leak rate" {
		t.Errorf("swept = %v", tbl.Swept)
	}

	var tb stitch.TestBed
	if err := json.Unmarshal(tbl.TestBed, &tb); err != nil {
		t.Fatalf("test bed metadata is not JSON: %v", err)
	}
	if keys := tb.Keys(); len(keys) != 3 || keys[0] != "node count" || keys[2] != "history_length" {
		t.Errorf("test bed keys = %v", keys)
	}
}

func TestReadFile_NotArrow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x"+Ext)
	if err := os.WriteFile(path, []byte("not arrow"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("expected error for a non-Arrow file")
	}
}

func TestPathFor(t *testing.T) {
	if got := PathFor("/out/e/e1/leak_rate.json"); got != "/out/e/e1/leak_rate.arrow" {
		t.Errorf("PathFor() = %q", got)
	}
}
