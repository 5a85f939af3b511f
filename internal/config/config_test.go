package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STUDYDO_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", c.Server.Port)
	}
	if c.Engine.MaxContextChars != 20000 {
		t.Errorf("max_context_chars = %d, want 20000", c.Engine.MaxContextChars)
	}
	if c.Worker.StalenessWindow != 10*time.Minute {
		t.Errorf("staleness_window = %v, want 10m", c.Worker.StalenessWindow)
	}
	if c.Local.URL != "http://localhost:11434" {
		t.Errorf("local url = %q", c.Local.URL)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = 9000

[remote]
model = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STUDYDO_CONFIG", path)
	t.Setenv("STUDYDO_REMOTE_MODEL", "from-env")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 9000 {
		t.Errorf("port = %d, want file value 9000", c.Server.Port)
	}
	if c.Remote.Model != "from-env" {
		t.Errorf("model = %q, env should override file", c.Remote.Model)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("TEST_KEY_VAR", "from-env-var")

	r := RemoteConfig{APIKey: "direct", APIKeyEnv: "TEST_KEY_VAR"}
	if got := r.ResolveAPIKey(); got != "direct" {
		t.Errorf("ResolveAPIKey = %q, want direct value preferred", got)
	}
	r.APIKey = ""
	if got := r.ResolveAPIKey(); got != "from-env-var" {
		t.Errorf("ResolveAPIKey = %q, want env var fallback", got)
	}
	r.APIKeyEnv = ""
	if got := r.ResolveAPIKey(); got != "" {
		t.Errorf("ResolveAPIKey = %q, want empty", got)
	}
}
