package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatal(err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent without a level")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatal(err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("env level not applied")
	}
}

func TestInitializeWithFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	path := filepath.Join(t.TempDir(), "autoconnect.log")
	if err := InitializeWithFile("", FileConfig{Path: path}); err != nil {
		t.Fatal(err)
	}
	Info("Station connected")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "Station connected") {
		t.Errorf("log file = %q", data)
	}
}

func TestDumps(t *testing.T) {
	data := []byte("AC\x00\xff")
	if got := HexDump(data); got != "414300ff" {
		t.Errorf("HexDump() = %q", got)
	}
	if got := ASCIIDump(data); got != "AC.." {
		t.Errorf("ASCIIDump() = %q", got)
	}
	long := make([]byte, 300)
	if got := HexDump(long); !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("HexDump() of long input has length %d", len(got))
	}
}

func TestRedact(t *testing.T) {
	if Redact("") != "" || Redact("secret") != "<6 chars>" {
		t.Error("Redact() output unexpected")
	}
}
