package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	closer := Setup(path)
	log.Printf("session recorded")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	Setup("")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "session recorded") {
		t.Fatalf("expected log line in file, got %q", data)
	}
}

func TestSetup_NoFile(t *testing.T) {
	closer := Setup("")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
