package mcp

import (
	"testing"

	"github.com/nvandessel/sweepgen/internal/config"
)

func TestNewServer(t *testing.T) {
	server, root := setupTestServer(t)

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.runner == nil || server.registry == nil || server.limiters == nil {
		t.Error("server dependencies not initialized")
	}
	if len(server.roots) != 1 || server.roots[0] != root {
		t.Errorf("roots = %v, want [%s]", server.roots, root)
	}
	if server.audit == nil {
		t.Error("expected an audit logger")
	}
}

func TestNewServer_DefaultRootIsOutputDir(t *testing.T) {
	dir := t.TempDir()
	settings := config.Default()
	settings.Output.Dir = dir

	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0", Settings: settings})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if len(server.roots) != 1 || server.roots[0] != dir {
		t.Errorf("roots = %v, want [%s]", server.roots, dir)
	}
	if server.audit != nil {
		t.Error("expected auditing to be off without AuditDir")
	}
}

func TestNewServer_Errors(t *testing.T) {
	if _, err := NewServer(nil); err == nil {
		t.Error("expected error for nil config")
	}

	settings := config.Default()
	settings.Logging.Level = "loud"
	if _, err := NewServer(&Config{Settings: settings}); err == nil {
		t.Error("expected error for invalid settings")
	}
}
