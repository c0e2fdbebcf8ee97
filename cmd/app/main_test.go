package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testRepo(t *testing.T, readme string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCLI(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	oldIn, oldOut := stdin, stdout
	stdin, stdout = strings.NewReader(in), &out
	t.Cleanup(func() { stdin, stdout = oldIn, oldOut })

	err := newCommand().Run(context.Background(), append([]string{"dailynote"}, args...))
	return out.String(), err
}

func TestCLI_UpdateThenToday(t *testing.T) {
	dir := testRepo(t, "# Today's Content\n\nold\n")

	out, err := runCLI(t, "", "--repo", dir, "--index", "", "update", "--content", "new body")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(out, "archived archive/") || !strings.Contains(out, "updated README.md") {
		t.Errorf("update output = %q", out)
	}

	out, err = runCLI(t, "", "--repo", dir, "--index", "", "today")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if out != "new body\n" {
		t.Errorf("today output = %q", out)
	}
}

func TestCLI_ContentFromStdin(t *testing.T) {
	dir := testRepo(t, "# Today's Content\n")

	if _, err := runCLI(t, "piped notes\n", "--repo", dir, "--index", "", "update", "--content-file", "-"); err != nil {
		t.Fatalf("update: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "README.md"))
	if !strings.Contains(string(data), "piped notes") {
		t.Errorf("README = %q", data)
	}
}

func TestCLI_MissingContentIsUsageError(t *testing.T) {
	dir := testRepo(t, "# Today's Content\n")
	_, err := runCLI(t, "", "--repo", dir, "update")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v", err)
	}
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("exit = %d", exitCodeFor(err))
	}
}

func TestCLI_ExplicitConfigMustExist(t *testing.T) {
	_, err := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "today")
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("err = %v, exit = %d", err, exitCodeFor(err))
	}
}

func TestCLI_MalformedDocumentIsIOError(t *testing.T) {
	dir := testRepo(t, "# Notes\n")
	_, err := runCLI(t, "", "--repo", dir, "--index", "", "update", "--content", "x")
	if exitCodeFor(err) != ExitIO {
		t.Errorf("err = %v, exit = %d", err, exitCodeFor(err))
	}
}
