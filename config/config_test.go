package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `port:
  device: /dev/ttyACM1
  baud: 57600
  parity: none
  read_timeout: 2s
  connect_retries: 5

target:
  verify: true
  go: true
  page_size: 128

loader:
  count_check: true

log:
  level: debug
  encoding: json
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "port.device", cfg.Port.Device, "/dev/ttyACM1")
	assertEqual(t, "port.parity", cfg.Port.Parity, "none")
	if cfg.Port.Baud != 57600 {
		t.Errorf("expected port.baud=57600, got %d", cfg.Port.Baud)
	}
	if cfg.Port.ReadTimeout.Duration != 2*time.Second {
		t.Errorf("expected port.read_timeout=2s, got %v", cfg.Port.ReadTimeout.Duration)
	}
	if cfg.Port.ConnectRetries != 5 {
		t.Errorf("expected port.connect_retries=5, got %d", cfg.Port.ConnectRetries)
	}
	if !cfg.Target.Verify || !cfg.Target.Go || cfg.Target.PageSize != 128 {
		t.Errorf("unexpected target config %+v", cfg.Target)
	}
	if !cfg.Loader.CountCheck {
		t.Error("expected loader.count_check=true")
	}
	assertEqual(t, "log.level", cfg.Log.Level, "debug")
	assertEqual(t, "log.encoding", cfg.Log.Encoding, "json")

	sc := cfg.Serial()
	if sc.Device != "/dev/ttyACM1" || sc.ReadTimeout != 2*time.Second {
		t.Errorf("Serial() = %+v", sc)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "port:\n  device: /dev/ttyS3\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	assertEqual(t, "port.device", cfg.Port.Device, "/dev/ttyS3")
	assertEqual(t, "port.parity", cfg.Port.Parity, def.Port.Parity)
	if cfg.Port.Baud != def.Port.Baud {
		t.Errorf("expected default baud %d, got %d", def.Port.Baud, cfg.Port.Baud)
	}
	if cfg.Target.PageSize != def.Target.PageSize {
		t.Errorf("expected default page size, got %d", cfg.Target.PageSize)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	for _, content := range []string{"", "   \n  \n"} {
		cfg, err := Load(writeTemp(t, content))
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", content, err)
		}
		assertEqual(t, "port.device", cfg.Port.Device, Default().Port.Device)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/srecloader.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "{{invalid yaml")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := Load(writeTemp(t, "port:\n  device: /dev/ttyS0\n  stop_bits: 2\n"))
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "stop_bits") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SREC_PORT", "/dev/ttyUSB7")

	cfg, err := Load(writeTemp(t, "port:\n  device: ${TEST_SREC_PORT}\n  baud: ${TEST_SREC_BAUD:-9600}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "port.device", cfg.Port.Device, "/dev/ttyUSB7")
	if cfg.Port.Baud != 9600 {
		t.Errorf("expected port.baud=9600, got %d", cfg.Port.Baud)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "no device", modify: func(c *Config) { c.Port.Device = "" }, want: "port.device"},
		{name: "zero baud", modify: func(c *Config) { c.Port.Baud = 0 }, want: "port.baud"},
		{name: "mark parity", modify: func(c *Config) { c.Port.Parity = "mark" }, want: "port.parity"},
		{name: "odd page", modify: func(c *Config) { c.Target.PageSize = 130 }, want: "target.page_size"},
		{name: "huge page", modify: func(c *Config) { c.Target.PageSize = 512 }, want: "target.page_size"},
		{name: "bad level", modify: func(c *Config) { c.Log.Level = "loud" }, want: "log.level"},
		{name: "bad encoding", modify: func(c *Config) { c.Log.Encoding = "xml" }, want: "log.encoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Port.Baud = -1
	cfg.Log.Encoding = "xml"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "port.baud") || !strings.Contains(err.Error(), "log.encoding") {
		t.Errorf("Validate() = %v", err)
	}
}

func TestDurationInvalid(t *testing.T) {
	if _, err := Parse([]byte("port:\n  read_timeout: soon\n")); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "srecloader.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
