package stitch

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/sweepgen/internal/artifact"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

var testDefaults = []Entry{
	{"node count", 100},
	{"leak rate", 0.1},
	{"spectral radius", 1.0},
	{"connectivity", 0.1},
	{"input scaling", 1.0},
	{"input connectivity", 0.1},
}

func leakRateSpec() sweep.ParameterSpec {
	return sweep.ParameterSpec{Name: "leak rate", Start: 0.1, Stop: 0.3, Step: 0.1}
}

// buildDir populates a build directory with one step per result.
func buildDir(t *testing.T, results ...any) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "build_leak_rate")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	ids := []string{"aaaaaa", "aaaaab", "aaaaac", "aaaaad", "aaaaae", "aaaaaf", "aaaaba"}
	for i, r := range results {
		raw, err := artifact.Encode(r)
		if err != nil {
			t.Fatal(err)
		}
		if err := artifact.Write(dir, artifact.Envelope{Seq: i, ID: ids[i], Result: raw}); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestStitch_Document(t *testing.T) {
	dir := buildDir(t, 0.1, 0.2, 0.3)
	out := filepath.Join(t.TempDir(), "fn", "fn1", "leak_rate.json")
	tb := NewTestBed(testDefaults, []Entry{{"order", 2}}, []sweep.ParameterSpec{leakRateSpec()})

	res, err := Stitch(dir, tb, out, true)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc []any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not a JSON array: %v", err)
	}
	if len(doc) != 4 {
		t.Fatalf("len(doc) = %d, want 4", len(doc))
	}

	head, ok := doc[0].(map[string]any)
	if !ok {
		t.Fatalf("doc[0] = %T, want object", doc[0])
	}
	bound, ok := head["leak rate"].([]any)
	if !ok || len(bound) != 3 || bound[0] != 0.1 || bound[1] != 0.3 || bound[2] != 0.1 {
		t.Errorf("leak rate bound = %v", head["leak rate"])
	}
	for _, k := range []string{"node count", "spectral radius", "connectivity", "input scaling", "input connectivity"} {
		if _, ok := head[k]; !ok {
			t.Errorf("test bed lacks %q", k)
		}
	}
	if head["node count"] != float64(100) || head["order"] != float64(2) {
		t.Errorf("unswept values changed: %v", head)
	}
	for i, want := range []float64{0.1, 0.2, 0.3} {
		if doc[i+1] != want {
			t.Errorf("doc[%d] = %v, want %v", i+1, doc[i+1], want)
		}
	}
}

func TestStitch_KeyOrder(t *testing.T) {
	dir := buildDir(t, 1)
	out := filepath.Join(t.TempDir(), "doc.json")
	tb := NewTestBed(testDefaults, []Entry{{"bucket_count", 10}}, []sweep.ParameterSpec{leakRateSpec()})

	if _, err := Stitch(dir, tb, out, true); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	data, _ := os.ReadFile(out)
	want := "[\n" +
		`{"node count":100,"leak rate":[0.1,0.3,0.1],"spectral radius":1,"connectivity":0.1,"input scaling":1,"input connectivity":0.1,"bucket_count":10}` +
		",\n1\n]\n"
	if string(data) != want {
		t.Errorf("document =\n%s\nwant\n%s", data, want)
	}
}

func TestStitch_RemovesBuildDir(t *testing.T) {
	dir := buildDir(t, 1, 2)
	out := filepath.Join(t.TempDir(), "doc.json")

	if _, err := Stitch(dir, NewTestBed(testDefaults, nil, nil), out, false); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("build directory still present: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("document missing: %v", err)
	}
}

func TestStitch_KeepsBuildDir(t *testing.T) {
	dir := buildDir(t, 1, 2)
	out := filepath.Join(t.TempDir(), "doc.json")

	if _, err := Stitch(dir, NewTestBed(testDefaults, nil, nil), out, true); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	for _, name := range []string{"data_aaaaaa.json", "data_aaaaab.json", TestBedFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing from kept build dir: %v", name, err)
		}
	}
}

func TestStitch_FailedWriteKeepsBuildDir(t *testing.T) {
	dir := buildDir(t, 1)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(blocker, "doc.json")

	if _, err := Stitch(dir, NewTestBed(testDefaults, nil, nil), out, false); err == nil {
		t.Fatal("expected error when output parent is a file")
	}
	if _, err := os.Stat(artifact.StepPath(dir, "aaaaaa")); err != nil {
		t.Errorf("build directory removed after failed write: %v", err)
	}
}

func TestRestitch_ByteIdentical(t *testing.T) {
	dir := buildDir(t, []float64{0.5, 0.25}, 3, map[string]any{"h": 0.9})
	tmp := t.TempDir()
	first := filepath.Join(tmp, "first.json")
	second := filepath.Join(tmp, "second.json")
	third := filepath.Join(tmp, "third.json")
	tb := NewTestBed(testDefaults, []Entry{{"order", int32(3)}}, []sweep.ParameterSpec{leakRateSpec()})

	if _, err := Stitch(dir, tb, first, true); err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if _, err := Restitch(dir, second); err != nil {
		t.Fatalf("Restitch: %v", err)
	}
	if _, err := Restitch(dir, third); err != nil {
		t.Fatalf("Restitch: %v", err)
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	c, _ := os.ReadFile(third)
	if !bytes.Equal(a, b) || !bytes.Equal(b, c) {
		t.Errorf("re-stitched documents differ:\n%s\n---\n%s", a, b)
	}
}

func TestRestitch_MissingTestBed(t *testing.T) {
	dir := buildDir(t, 1)
	if _, err := Restitch(dir, filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Error("expected error without test bed")
	}
}

func TestReadDocument(t *testing.T) {
	dir := buildDir(t, 0.1, 0.2)
	out := filepath.Join(t.TempDir(), "doc.json")
	tb := NewTestBed(testDefaults, nil, []sweep.ParameterSpec{leakRateSpec()})
	if _, err := Stitch(dir, tb, out, true); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadDocument(out)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(doc.Artifacts) != 2 {
		t.Errorf("len(Artifacts) = %d, want 2", len(doc.Artifacts))
	}
	if got := doc.Swept(); len(got) != 1 || got[0] != "leak rate" {
		t.Errorf("Swept() = %v", got)
	}
	if doc.TestBed.Len() != len(testDefaults) {
		t.Errorf("TestBed.Len() = %d", doc.TestBed.Len())
	}

	if _, err := ParseDocument([]byte(`[]`)); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := ParseDocument([]byte(`[1]`)); err == nil {
		t.Error("expected error for non-object test bed")
	}
}

func TestTestBed_Normalize(t *testing.T) {
	tb := &TestBed{}
	tb.Set("a", int32(7))
	tb.Set("b", float32(0.5))
	tb.Set("c", uint8(2))
	tb.Set("a", int16(8))

	if got, _ := tb.Get("a"); got != int64(8) {
		t.Errorf("a = %#v, want int64(8)", got)
	}
	if got, _ := tb.Get("b"); got != float64(0.5) {
		t.Errorf("b = %#v", got)
	}
	if got, _ := tb.Get("c"); got != uint64(2) {
		t.Errorf("c = %#v", got)
	}
	if keys := tb.Keys(); len(keys) != 3 || keys[0] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
}
