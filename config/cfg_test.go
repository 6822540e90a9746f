package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"

	"hmlt/common"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Conversion.Game != common.VersionH3 {
		t.Errorf("Game = %v, want h3", cfg.Conversion.Game)
	}
	if cfg.Conversion.DefaultLocale != "en" {
		t.Errorf("DefaultLocale = %q, want en", cfg.Conversion.DefaultLocale)
	}
	if len(cfg.Conversion.LangMap) != 0 || len(cfg.Conversion.HashList) != 0 {
		t.Errorf("LangMap = %q, HashList = %q, want empty", cfg.Conversion.LangMap, cfg.Conversion.HashList)
	}
	if cfg.Conversion.HexPrecision || cfg.Conversion.Overwrite {
		t.Error("HexPrecision and Overwrite must be off by default")
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("console level = %q, want normal", cfg.Logging.ConsoleLogger.Level)
	}
	if cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("file level = %q, want none", cfg.Logging.FileLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	hashList := filepath.Join(tmpDir, "hash_list.hmla")

	if err := os.WriteFile(hashList, []byte("HMLA"), 0644); err != nil {
		t.Fatalf("Failed to write hash list: %v", err)
	}

	configContent := `version: 1
conversion:
  game: h2016
  hash_list: ` + hashList + `
  default_locale: fr
  lang_map: "xx,en,fr"
  hex_precision: true
logging:
  console:
    level: debug
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "logs", "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Conversion.Game != common.VersionH2016 {
		t.Errorf("Game = %v, want h2016", cfg.Conversion.Game)
	}
	if cfg.Conversion.HashList != hashList {
		t.Errorf("HashList = %q, want %q", cfg.Conversion.HashList, hashList)
	}
	if cfg.Conversion.DefaultLocale != "fr" || cfg.Conversion.LangMap != "xx,en,fr" {
		t.Errorf("DefaultLocale = %q, LangMap = %q", cfg.Conversion.DefaultLocale, cfg.Conversion.LangMap)
	}
	if !cfg.Conversion.HexPrecision {
		t.Error("Expected HexPrecision to be true")
	}
	if cfg.Conversion.Overwrite {
		t.Error("Overwrite must keep default value")
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("file mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}
	// sanitizer creates directory for the log file
	if _, err := os.Stat(filepath.Join(tmpDir, "logs")); err != nil {
		t.Errorf("log directory was not created: %v", err)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nconversion:\n  game: h3\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"invalid version", "version: 2\n"},
		{"unknown game", "version: 1\nconversion:\n  game: h4\n"},
		{"empty locale", "version: 1\nconversion:\n  default_locale: \"\"\n"},
		{"bad console level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// Verify it's valid YAML by trying to unmarshal
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Conversion.Game = common.VersionH2

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	out := string(data)
	for _, want := range []string{"version: 1", "game: h2", "default_locale: en"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() output lacks %q:\n%s", want, out)
		}
	}

	// dumped configuration must be loadable again
	restored, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("unmarshalConfig() of dump error = %v", err)
	}
	if restored.Conversion.Game != common.VersionH2 {
		t.Errorf("restored Game = %v, want h2", restored.Conversion.Game)
	}
}
