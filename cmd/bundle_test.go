package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBundleCommandFlagsRegistered(t *testing.T) {
	for _, name := range []string{"root", "out", "requirements", "no-tree-shake", "python-version", "strict", "config", "diagnostics-json"} {
		if bundleCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestBundleCommandRequiresExactlyOneArg(t *testing.T) {
	if err := bundleCmd.Args(bundleCmd, nil); err == nil {
		t.Error("expected an error when no entry file is given")
	}
	if err := bundleCmd.Args(bundleCmd, []string{"a.py", "b.py"}); err == nil {
		t.Error("expected an error when more than one entry file is given")
	}
}

func TestBundleCommandEntryFileMissing(t *testing.T) {
	dir := t.TempDir()
	bundleCmd.SetArgs([]string{"bundle", filepath.Join(dir, "missing.py")})
	bundleCmd.SetOut(&bytes.Buffer{})
	bundleCmd.SetErr(&bytes.Buffer{})
	err := bundleCmd.RunE(bundleCmd, []string{filepath.Join(dir, "missing.py")})
	if err == nil {
		t.Fatal("expected an error for a nonexistent entry file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBundleCommandWritesSingleFileOutput(t *testing.T) {
	dir := t.TempDir()
	helper := "def greet(name):\n    return 'hi ' + name\n"
	if err := os.WriteFile(filepath.Join(dir, "helper.py"), []byte(helper), 0o644); err != nil {
		t.Fatal(err)
	}
	entry := "from helper import greet\nprint(greet('world'))\n"
	entryPath := filepath.Join(dir, "main.py")
	if err := os.WriteFile(entryPath, []byte(entry), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath = filepath.Join(dir, "bundle.py")
	defer func() { outPath = "" }()

	if err := bundleCmd.RunE(bundleCmd, []string{entryPath}); err != nil {
		t.Fatalf("bundle command failed: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected bundle output file, got error: %v", err)
	}
	if !strings.Contains(string(out), "greet") {
		t.Errorf("expected bundled output to contain inlined helper, got:\n%s", out)
	}
	if strings.Contains(string(out), "import helper") {
		t.Errorf("expected the first-party import to be stripped, got:\n%s", out)
	}
}
