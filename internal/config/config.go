package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// Index
	IndexBackend string `toml:"index_backend"` // "solr" or "sqlite"
	SolrURL      string `toml:"solr_url"`
	SolrCore     string `toml:"solr_core"`
	SQLitePath   string `toml:"sqlite_path"`

	// Normalization
	IdentifierBase   string   `toml:"identifier_base"`
	VenueBase        string   `toml:"venue_base"`
	ExcludedSubjects []string `toml:"excluded_subjects"`

	// Runtime
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Workers   int    `toml:"workers"`

	// SFTP
	SFTPHost                  string `toml:"sftp_host"`
	SFTPPort                  int    `toml:"sftp_port"`
	SFTPUser                  string `toml:"sftp_user"`
	SFTPPass                  string `toml:"-"`
	SFTPDir                   string `toml:"sftp_dir"`
	SFTPHostKey               string `toml:"sftp_host_key"`
	SFTPInsecureIgnoreHostKey bool   `toml:"sftp_insecure_ignore_host_key"`
}

func Defaults() Config {
	return Config{
		IndexBackend:     "solr",
		SolrURL:          "http://localhost:8983/solr",
		SolrCore:         "courses",
		SQLitePath:       "courses.db",
		IdentifierBase:   "http://course.data.ox.ac.uk/id/",
		VenueBase:        "http://oxpoints.oucs.ox.ac.uk/id/",
		ExcludedSubjects: []string{"Graduate Training", "Other", "Unknown"},
		LogLevel:         "info",
		LogFormat:        "text",
		Workers:          1,
		SFTPPort:         22,
		SFTPDir:          "/inbound",
	}
}

// Load returns the defaults overridden by the environment.
func Load() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a TOML file over the defaults, then applies the environment
// on top. An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	// Index
	cfg.IndexBackend = getenv("XCRI_INDEX", cfg.IndexBackend)
	cfg.SolrURL = getenv("SOLR_URL", cfg.SolrURL)
	cfg.SolrCore = getenv("SOLR_CORE", cfg.SolrCore)
	cfg.SQLitePath = getenv("XCRI_SQLITE_PATH", cfg.SQLitePath)

	// Normalization
	cfg.IdentifierBase = getenv("XCRI_IDENTIFIER_BASE", cfg.IdentifierBase)
	cfg.VenueBase = getenv("XCRI_VENUE_BASE", cfg.VenueBase)
	cfg.ExcludedSubjects = getenvList("XCRI_EXCLUDED_SUBJECTS", cfg.ExcludedSubjects)

	// Runtime
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	cfg.Workers = getenvInt("XCRI_WORKERS", cfg.Workers)

	// SFTP
	cfg.SFTPHost = getenv("SFTP_HOST", cfg.SFTPHost)
	cfg.SFTPPort = getenvInt("SFTP_PORT", cfg.SFTPPort)
	cfg.SFTPUser = getenv("SFTP_USER", cfg.SFTPUser)
	cfg.SFTPPass = getenv("SFTP_PASS", cfg.SFTPPass)
	cfg.SFTPDir = getenv("SFTP_DIR", cfg.SFTPDir)
	cfg.SFTPHostKey = getenv("SFTP_HOST_KEY", cfg.SFTPHostKey)
	cfg.SFTPInsecureIgnoreHostKey = getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", cfg.SFTPInsecureIgnoreHostKey)
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

// getenvList splits a comma separated value; "-" clears the list.
func getenvList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	switch v {
	case "":
		return def
	case "-":
		return []string{}
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
