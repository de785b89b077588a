package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != DefaultAddress {
		t.Errorf("address: got %q, want %q", cfg.Server.Address, DefaultAddress)
	}
	if cfg.Server.MaxUploadSize != DefaultMaxUploadSize {
		t.Errorf("max upload: got %d, want %d", cfg.Server.MaxUploadSize, DefaultMaxUploadSize)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("cors origins: got %v, want [*]", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.UploadDir != "uploads" || cfg.Storage.OutputDir != "output" {
		t.Errorf("storage: got %+v", cfg.Storage)
	}
	if cfg.ShutdownGrace() != DefaultShutdownTimeout {
		t.Errorf("shutdown grace: got %v, want %v", cfg.ShutdownGrace(), DefaultShutdownTimeout)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "viewer.toml", `
[server]
address = "0.0.0.0:8080"
cors_origins = ["http://localhost:3000"]
shutdown_timeout = 10

[storage]
upload_dir = "data/uploads"
output_dir = "/srv/output"

[logging]
logfile = "viewer.log"
max_log_size = 50
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := filepath.Dir(path)
	if cfg.Server.Address != "0.0.0.0:8080" {
		t.Errorf("address: got %q", cfg.Server.Address)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("cors origins: got %v", cfg.Server.CORSOrigins)
	}
	if cfg.ShutdownGrace() != 10*time.Second {
		t.Errorf("shutdown grace: got %v", cfg.ShutdownGrace())
	}
	// Unset keys keep their defaults.
	if cfg.Server.MaxUploadSize != DefaultMaxUploadSize {
		t.Errorf("max upload: got %d", cfg.Server.MaxUploadSize)
	}
	if want := filepath.Join(dir, "data/uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("upload dir: got %q, want %q", cfg.Storage.UploadDir, want)
	}
	if cfg.Storage.OutputDir != "/srv/output" {
		t.Errorf("output dir: got %q, want /srv/output", cfg.Storage.OutputDir)
	}
	if want := filepath.Join(dir, "viewer.log"); cfg.Logging.Logfile != want {
		t.Errorf("logfile: got %q, want %q", cfg.Logging.Logfile, want)
	}
	if cfg.Logging.MaxSize != 50 || cfg.Logging.Level != "debug" {
		t.Errorf("logging: got %+v", cfg.Logging)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "viewer.yaml", `
server:
  address: "127.0.0.1:9000"
  max_upload_size: 1024
storage:
  output_dir: artifacts
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("address: got %q", cfg.Server.Address)
	}
	if cfg.Server.MaxUploadSize != 1024 {
		t.Errorf("max upload: got %d, want 1024", cfg.Server.MaxUploadSize)
	}
	if want := filepath.Join(filepath.Dir(path), "artifacts"); cfg.Storage.OutputDir != want {
		t.Errorf("output dir: got %q, want %q", cfg.Storage.OutputDir, want)
	}
	if want := filepath.Join(filepath.Dir(path), "uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("upload dir: got %q, want %q", cfg.Storage.UploadDir, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errText string
	}{
		{"unknown extension", "viewer.ini", "address=x", "unsupported config file extension"},
		{"bad toml", "viewer.toml", "[server\naddress=", "could not decode TOML"},
		{"bad yaml", "viewer.yml", "server: [unclosed", "could not decode YAML"},
		{"empty address", "viewer.toml", "[server]\naddress = \"\"", "address must not be empty"},
		{"zero upload size", "viewer.toml", "[server]\nmax_upload_size = 0", "max_upload_size"},
		{"bad level", "viewer.toml", "[logging]\nlevel = \"trace\"", "unknown logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not mention %q", err, tt.errText)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSetLogger_File(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "viewer.log")
	lc := &LogConfig{Logfile: logfile, MaxSize: 1}
	closeLog := lc.SetLogger()

	Infof("hello %s", "file")
	Debugf("hidden")

	if err := closeLog(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !bytes.Contains(data, []byte(" INFO hello file")) {
		t.Errorf("log file missing info line: %q", data)
	}
	if bytes.Contains(data, []byte("hidden")) {
		t.Errorf("debug line written with debug disabled: %q", data)
	}
}

func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	defer SetDebug(false)

	SetDebug(false)
	Debugf("quiet")
	if buf.Len() != 0 {
		t.Errorf("Debugf wrote with debug disabled: %q", buf.String())
	}

	SetDebug(true)
	Debugf("loud %d", 1)
	if !strings.Contains(buf.String(), " DEBUG loud 1") {
		t.Errorf("Debugf output missing: %q", buf.String())
	}
}

func TestLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	tests := []struct {
		name string
		logf func(string, ...interface{})
		want string
	}{
		{"info", Infof, " INFO stored 3"},
		{"warning", Warningf, " WARNING stored 3"},
		{"error", Errorf, " ERROR stored 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logf("stored %d", 3)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("got %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSetLogger_EnvLevel(t *testing.T) {
	t.Setenv(LogEnvVar, "debug")
	defer SetDebug(false)

	closeLog := (&LogConfig{}).SetLogger()
	defer closeLog()

	if !DebugEnabled() {
		t.Error("debug not enabled by environment variable")
	}
}
