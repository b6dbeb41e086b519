package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	defer Close()

	SetVerbose(false)
	Info("hello %s", "world")
	Debug("hidden")
	SetVerbose(true)
	Debug("shown")
	Warn("careful")
	Error("broken")
	SetVerbose(false)

	if Path() != path {
		t.Errorf("Path() = %q, want %q", Path(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{"[INFO] hello world", "[DEBUG] shown", "[WARN] careful", "[ERROR] broken"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line written while verbose was off")
	}
}

func TestGetWriter_DiscardAfterClose(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "a.log")); err != nil {
		t.Fatal(err)
	}
	Close()

	if GetWriter() != io.Discard {
		t.Error("GetWriter() should discard after Close")
	}
	Info("no panic after close")
}
