package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	content := `# endpoints
TP_TEST_CHAT=ws://example.test/chat
export TP_TEST_API=http://example.test/api

TP_TEST_QUOTED="quoted value"
TP_TEST_SINGLE='single'
 TP_TEST_SPACED = spaced
`
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	keys := []string{"TP_TEST_CHAT", "TP_TEST_API", "TP_TEST_QUOTED", "TP_TEST_SINGLE", "TP_TEST_SPACED"}
	for _, k := range keys {
		os.Unsetenv(k)
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key, want string
	}{
		{"TP_TEST_CHAT", "ws://example.test/chat"},
		{"TP_TEST_API", "http://example.test/api"},
		{"TP_TEST_QUOTED", "quoted value"},
		{"TP_TEST_SINGLE", "single"},
		{"TP_TEST_SPACED", "spaced"},
	}
	for _, tt := range tests {
		if got := os.Getenv(tt.key); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadDotenvNoOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TP_EXISTING=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TP_EXISTING", "original")

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("TP_EXISTING"); got != "original" {
		t.Errorf("expected existing var to be preserved, got %q", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := LoadDotenv("/nonexistent/.env"); err != nil {
		t.Errorf("missing file should be ignored, got: %v", err)
	}
}

func TestParseDotenvSkipsGarbage(t *testing.T) {
	vars, err := parseDotenv(strings.NewReader("no-equals-sign\n=novalue\nOK=1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 1 || vars["OK"] != "1" {
		t.Errorf("unexpected vars: %v", vars)
	}
}
