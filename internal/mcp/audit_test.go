package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readAudit(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit entry %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	var logger *AuditLogger
	logger.Log(AuditEntry{Tool: "test"})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on nil logger returned error: %v", err)
	}
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	logger.Log(AuditEntry{Timestamp: time.Now(), Tool: "sweep_generate", DurationMs: 42, Status: "success"})
	logger.Log(AuditEntry{Timestamp: time.Now(), Tool: "sweep_inspect", Status: "error", Error: "boom"})

	entries := readAudit(t, dir)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Tool != "sweep_generate" || entries[0].DurationMs != 42 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Close()

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit log permissions = %o, want 0600", perm)
	}
}

func TestAuditLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	logger.Close()
	logger.Log(AuditEntry{Tool: "late"})
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if entries := readAudit(t, dir); len(entries) != 0 {
		t.Errorf("expected no entries after close, got %d", len(entries))
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: "sweep_inspect", Status: "success"})
		}()
	}
	wg.Wait()

	if entries := readAudit(t, dir); len(entries) != 50 {
		t.Errorf("entries = %d, want 50", len(entries))
	}
}

func TestAuditLogger_BadPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if logger := NewAuditLogger(filepath.Join(file, "sub")); logger != nil {
		t.Error("expected nil logger for an unusable directory")
	}
}

func TestSanitizeToolParams(t *testing.T) {
	seed := uint64(7)
	got := sanitizeToolParams(map[string]any{
		"evaluator":    "shannon_entropy",
		"datasets":     3,
		"double_sweep": false,
		"seed":         &seed,
		"output":       "/home/someone/private",
		"parameters":   true,
		"bindings":     false,
		"unknown":      "dropped",
	})

	want := map[string]string{
		"evaluator":    "shannon_entropy",
		"datasets":     "3",
		"seed":         "7",
		"output":       "(set)",
		"parameters":   "(set)",
		"_param_count": "6",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	if sanitizeToolParams(nil) != nil {
		t.Error("expected nil for nil params")
	}
	var nilSeed *uint64
	if got := sanitizeToolParams(map[string]any{"seed": nilSeed}); got["_param_count"] != "0" {
		t.Errorf("nil seed counted: %v", got)
	}
}

func TestAuditTool(t *testing.T) {
	server, root := setupTestServer(t)

	start := time.Now()
	time.Sleep(time.Millisecond)
	server.auditTool("sweep_export", start, nil, map[string]string{"path": "(set)"})
	server.auditTool("sweep_export", start, errors.New("export failed"), nil)

	entries := readAudit(t, filepath.Join(root, ".audit"))
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[0].DurationMs < 1 || entries[0].Params["path"] != "(set)" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "export failed" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestHandlers_WriteAudit(t *testing.T) {
	server, root := setupTestServer(t)
	generateLeakRate(t, server)

	entries := readAudit(t, filepath.Join(root, ".audit"))
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Tool != "sweep_generate" || e.Status != "success" {
		t.Errorf("entry = %+v", e)
	}
	if e.Params["evaluator"] != "config_value" || e.Params["parameters"] != "(set)" {
		t.Errorf("params = %v", e.Params)
	}
}
