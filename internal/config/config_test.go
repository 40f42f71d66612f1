package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetenv(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV")
	result := getenv("TEST_GETENV", "default")
	if result != "default" {
		t.Errorf("Expected default value 'default', got '%s'", result)
	}

	// Test with set environment variable
	os.Setenv("TEST_GETENV", "test-value")
	result = getenv("TEST_GETENV", "default")
	if result != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV")
}

func TestGetenvInt(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV_INT")
	result := getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}

	// Test with valid integer
	os.Setenv("TEST_GETENV_INT", "100")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 100 {
		t.Errorf("Expected 100, got %d", result)
	}

	// Test with invalid integer
	os.Setenv("TEST_GETENV_INT", "not-an-int")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV_INT")
}

func TestGetenvBool(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV_BOOL")
	result := getenvBool("TEST_GETENV_BOOL", true)
	if result != true {
		t.Errorf("Expected default value true, got %v", result)
	}

	// Test with valid boolean (true)
	os.Setenv("TEST_GETENV_BOOL", "true")
	result = getenvBool("TEST_GETENV_BOOL", false)
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}

	// Test with valid boolean (false)
	os.Setenv("TEST_GETENV_BOOL", "false")
	result = getenvBool("TEST_GETENV_BOOL", true)
	if result != false {
		t.Errorf("Expected false, got %v", result)
	}

	// Test with invalid boolean
	os.Setenv("TEST_GETENV_BOOL", "not-a-bool")
	result = getenvBool("TEST_GETENV_BOOL", true)
	if result != true {
		t.Errorf("Expected default value true, got %v", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV_BOOL")
}

func TestGetenvList(t *testing.T) {
	def := []string{"Other"}

	t.Setenv("TEST_GETENV_LIST", "")
	if got := getenvList("TEST_GETENV_LIST", def); len(got) != 1 || got[0] != "Other" {
		t.Errorf("Expected default list, got %v", got)
	}

	t.Setenv("TEST_GETENV_LIST", " Other , ,Unknown")
	got := getenvList("TEST_GETENV_LIST", def)
	if len(got) != 2 || got[0] != "Other" || got[1] != "Unknown" {
		t.Errorf("Expected [Other Unknown], got %v", got)
	}

	t.Setenv("TEST_GETENV_LIST", "-")
	if got := getenvList("TEST_GETENV_LIST", def); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
}

var envVars = []string{
	"XCRI_INDEX", "SOLR_URL", "SOLR_CORE", "XCRI_SQLITE_PATH",
	"XCRI_IDENTIFIER_BASE", "XCRI_VENUE_BASE", "XCRI_EXCLUDED_SUBJECTS",
	"LOG_LEVEL", "LOG_FORMAT", "XCRI_WORKERS", "SFTP_HOST", "SFTP_PORT",
	"SFTP_USER", "SFTP_PASS", "SFTP_DIR", "SFTP_HOST_KEY", "SFTP_INSECURE_IGNORE_HOSTKEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	// Test default values
	cfg := Load()
	if cfg.IndexBackend != "solr" {
		t.Errorf("Expected default IndexBackend to be 'solr', got '%s'", cfg.IndexBackend)
	}
	if cfg.SFTPPort != 22 {
		t.Errorf("Expected default SFTPPort to be 22, got %d", cfg.SFTPPort)
	}
	if cfg.SFTPDir != "/inbound" {
		t.Errorf("Expected default SFTPDir to be '/inbound', got '%s'", cfg.SFTPDir)
	}
	if cfg.SFTPInsecureIgnoreHostKey {
		t.Errorf("Expected default SFTPInsecureIgnoreHostKey to be false")
	}
	if len(cfg.ExcludedSubjects) != 3 {
		t.Errorf("Expected 3 default excluded subjects, got %v", cfg.ExcludedSubjects)
	}

	// Set test environment variables
	t.Setenv("XCRI_INDEX", "sqlite")
	t.Setenv("SOLR_URL", "https://solr.test/solr")
	t.Setenv("XCRI_WORKERS", "4")
	t.Setenv("SFTP_HOST", "sftp.test")
	t.Setenv("SFTP_PORT", "2222")
	t.Setenv("SFTP_USER", "sftp-user")
	t.Setenv("SFTP_PASS", "sftp-pass")
	t.Setenv("SFTP_INSECURE_IGNORE_HOSTKEY", "true")

	cfg = Load()
	if cfg.IndexBackend != "sqlite" {
		t.Errorf("Expected IndexBackend to be 'sqlite', got '%s'", cfg.IndexBackend)
	}
	if cfg.SolrURL != "https://solr.test/solr" {
		t.Errorf("Expected SolrURL to be 'https://solr.test/solr', got '%s'", cfg.SolrURL)
	}
	if cfg.Workers != 4 {
		t.Errorf("Expected Workers to be 4, got %d", cfg.Workers)
	}
	if cfg.SFTPPort != 2222 {
		t.Errorf("Expected SFTPPort to be 2222, got %d", cfg.SFTPPort)
	}
	if !cfg.SFTPInsecureIgnoreHostKey {
		t.Errorf("Expected SFTPInsecureIgnoreHostKey to be true")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "xcri.toml")
	data := `index_backend = "sqlite"
sqlite_path = "/var/lib/xcri/courses.db"
excluded_subjects = ["Other"]
workers = 3
sftp_host = "files.test"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("XCRI_WORKERS", "8")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.IndexBackend != "sqlite" || cfg.SQLitePath != "/var/lib/xcri/courses.db" {
		t.Errorf("Expected file values, got %q %q", cfg.IndexBackend, cfg.SQLitePath)
	}
	if len(cfg.ExcludedSubjects) != 1 || cfg.ExcludedSubjects[0] != "Other" {
		t.Errorf("Expected [Other], got %v", cfg.ExcludedSubjects)
	}
	if cfg.Workers != 8 {
		t.Errorf("Expected env to override file, got workers=%d", cfg.Workers)
	}
	if cfg.SolrCore != "courses" {
		t.Errorf("Expected defaults for unset keys, got SolrCore=%q", cfg.SolrCore)
	}
	if cfg.SFTPHost != "files.test" {
		t.Errorf("Expected SFTPHost from file, got %q", cfg.SFTPHost)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "config: read") {
		t.Errorf("Expected read error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("workers = = 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("Expected parse error, got %v", err)
	}

	cfg, err := LoadFile("")
	if err != nil || cfg.IndexBackend != "solr" {
		t.Errorf("Expected empty path to load defaults, got %v %v", cfg.IndexBackend, err)
	}
}
