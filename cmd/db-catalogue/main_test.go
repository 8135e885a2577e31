package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "db-catalogue.toml")
	writeFile(t, configPath, "[store]\nbackend = \"memory\"\n")
	good := filepath.Join(dir, "good.ddl")
	writeFile(t, good, "model Foo { id Int @id name String }\n")
	bad := filepath.Join(dir, "bad.ddl")
	writeFile(t, bad, "model Foo {\n")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := run(context.Background(), []string{"--config", configPath, "check", good}, stdout, stderr)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", exitCode, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No errors found") {
		t.Fatalf("stdout %q missing success line", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	exitCode = run(context.Background(), []string{"--config", configPath, "check", bad}, stdout, stderr)
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if !strings.Contains(stderr.String(), "[Syntactic]") {
		t.Fatalf("stderr %q missing syntactic diagnostic", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := run(context.Background(), []string{"frobnicate"}, stdout, stderr)
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Fatalf("stderr %q missing unknown command error", stderr.String())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
