package pkg

import (
	"bytes"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestLogrusIntegration(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("discovered %d interfaces", 4)
	Warn("namespace %s vanished", "blue")
	Error("probe failed")

	output := buf.String()
	for _, want := range []string{"discovered 4 interfaces", "namespace blue vanished", "probe failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got %q", want, output)
		}
	}
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	WithField("interface", "eth3").Info("marked as VF")
	WithFields(log.Fields{
		"pci":       "0000:18:00.0",
		"namespace": "blue",
	}).Info("stub consumed")

	output := buf.String()
	if !strings.Contains(output, "interface=eth3") {
		t.Error("interface field not found in structured log")
	}
	if !strings.Contains(output, "pci=\"0000:18:00.0\"") {
		t.Error("PCI field not found in structured log")
	}
}

func TestLogLevels(t *testing.T) {
	defer SetLogLevelFromString("info")

	if err := SetLogLevelFromString("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsDebugEnabled() {
		t.Error("debug level should be enabled")
	}

	if err := SetLogLevelFromString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsDebugEnabled() {
		t.Error("debug level should be disabled")
	}

	if err := SetLogLevelFromString("trace"); err == nil {
		t.Error("expected error for unsupported level")
	}
}

func TestLogFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLogFormat("text")

	if err := SetLogFormat("json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	WithField("interface", "bond0").Info("bond found")
	if !strings.Contains(buf.String(), `"interface":"bond0"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	if err := SetLogFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
