package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/sweepgen/internal/export"
)

func TestStitchCmd_RestitchesKeptBuild(t *testing.T) {
	isolateHome(t)
	cfgPath, outDir := writeConfig(t)
	summary := generate(t, cfgPath, "--keep-build")

	buildDir := filepath.Join(outDir, "config_value", "build_leak_rate")
	if _, err := os.Stat(buildDir); err != nil {
		t.Fatalf("build dir not kept: %v", err)
	}

	target := filepath.Join(t.TempDir(), "restitched.json")
	if _, err := execute(t, "stitch", buildDir, target); err != nil {
		t.Fatalf("stitch failed: %v", err)
	}

	original, err := os.ReadFile(summary.Documents[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	restitched, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, restitched) {
		t.Errorf("restitched document differs:\n%s\nvs\n%s", original, restitched)
	}
}

func TestInspectCmd(t *testing.T) {
	isolateHome(t)
	cfgPath, _ := writeConfig(t)
	path := generate(t, cfgPath).Documents[0].Path

	out, err := execute(t, "inspect", path, "--json", "--artifacts", "2")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	var res struct {
		Swept     []string          `json:"swept"`
		Count     int               `json:"count"`
		TestBed   json.RawMessage   `json:"test_bed"`
		Artifacts []json.RawMessage `json:"artifacts"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if res.Count != 3 || len(res.Artifacts) != 2 || string(res.Artifacts[1]) != "0.2" {
		t.Errorf("inspect = %+v", res)
	}
	if len(res.Swept) != 1 || res.Swept[0] != "leak rate" {
		t.Errorf("swept = %v", res.Swept)
	}
	if !strings.HasPrefix(string(res.TestBed), `{"node count":10,`) {
		t.Errorf("test bed = %s", res.TestBed)
	}

	text, err := execute(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(text, "leak rate") || !strings.Contains(text, "(swept)") {
		t.Errorf("unexpected inspect output:\n%s", text)
	}
}

func TestExportCmd(t *testing.T) {
	isolateHome(t)
	cfgPath, _ := writeConfig(t)
	path := generate(t, cfgPath).Documents[0].Path

	if _, err := execute(t, "export", path); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	table, err := export.ReadFile(export.PathFor(path))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(table.Steps) != 3 || table.Values[0] == nil || *table.Values[0] != 0.1 {
		t.Errorf("table = %+v", table)
	}

	if _, err := execute(t, "export", path, path, "-o", filepath.Join(t.TempDir(), "x.arrow")); err == nil {
		t.Error("expected error for --output with several documents")
	}
}

func TestArchiveCmds(t *testing.T) {
	isolateHome(t)
	cfgPath, outDir := writeConfig(t)
	generate(t, cfgPath, "--datasets", "2")

	out, err := execute(t, "archive", "config_value", "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	var created struct {
		Path      string `json:"path"`
		Documents int    `json:"documents"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if created.Documents != 2 || filepath.Dir(created.Path) != filepath.Join(outDir, ArchiveDir) {
		t.Errorf("archive = %+v", created)
	}

	out, err = execute(t, "archive", "verify", created.Path)
	if err != nil || !strings.HasPrefix(out, "OK") {
		t.Errorf("verify output = %q, err = %v", out, err)
	}

	out, err = execute(t, "archive", "list", "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var listed struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil || listed.TotalCount != 1 {
		t.Errorf("list = %q, err = %v", out, err)
	}

	restore := t.TempDir()
	if _, err := execute(t, "archive", "extract", created.Path, restore); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(restore, "config_value2", "leak_rate.json")); err != nil {
		t.Errorf("extracted document missing: %v", err)
	}
}

func TestArchiveVerifyCmd_Corrupt(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.sweep.gz")
	if err := os.WriteFile(bad, []byte("not an archive\n"), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "archive", "verify", bad, "--json")
	if err == nil {
		t.Fatal("expected verification error")
	}
	if !strings.Contains(out, `"valid":false`) {
		t.Errorf("verify output = %q", out)
	}
}

func TestEvaluatorsCmd(t *testing.T) {
	out, err := execute(t, "evaluators", "--json")
	if err != nil {
		t.Fatalf("evaluators failed: %v", err)
	}
	var res struct {
		Count      int `json:"count"`
		Evaluators []struct {
			Name string `json:"name"`
		} `json:"evaluators"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Count != 4 || res.Evaluators[0].Name != "config_value" {
		t.Errorf("evaluators = %+v", res)
	}
}

func TestConfigCmds(t *testing.T) {
	isolateHome(t)
	cfgPath, outDir := writeConfig(t)

	out, err := execute(t, "config", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if !strings.Contains(out, "reservoir.defaults.node count:") || !strings.Contains(out, "sweep_generate:") {
		t.Errorf("unexpected config list output:\n%s", out)
	}

	out, err = execute(t, "config", "list", "--config", cfgPath, "--yaml")
	if err != nil {
		t.Fatalf("config list --yaml failed: %v", err)
	}
	if !strings.Contains(out, "dir: "+outDir) {
		t.Errorf("yaml output missing output dir:\n%s", out)
	}

	out, err = execute(t, "config", "path", "--config", cfgPath)
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Errorf("config path = %q, err = %v", out, err)
	}
}
