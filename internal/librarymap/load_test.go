package librarymap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/svlang/elaborate/internal/sourcelib"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestLoadExpandsGlobsInFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rtl", "fifo.sv"), "// fifo")
	writeFile(t, filepath.Join(dir, "rtl", "adder.sv"), "// adder")
	writeFile(t, filepath.Join(dir, "fixed", "fifo.sv"), "// fixed fifo")

	mapPath := filepath.Join(dir, "design.map")
	writeFile(t, mapPath, `
// comment line, ignored
library rtl rtl/*.sv;

library fixed fixed/*.sv;
`)

	libs := sourcelib.NewRegistry()
	entries, err := Load(mapPath, libs)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(entries))
	}
	if entries[0].Library.Name() != "rtl" || len(entries[0].Files) != 2 {
		t.Fatalf("entries[0] = %+v, want library rtl with 2 matched files", entries[0])
	}
	if entries[1].Library.Name() != "fixed" || len(entries[1].Files) != 1 {
		t.Fatalf("entries[1] = %+v, want library fixed with 1 matched file", entries[1])
	}

	if _, ok := libs.ByName("rtl"); !ok {
		t.Error("expected Load to register a library named rtl in the given registry")
	}
	if _, ok := libs.ByName("fixed"); !ok {
		t.Error("expected Load to register a library named fixed in the given registry")
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "design.map")
	writeFile(t, mapPath, "not a library declaration\n")

	libs := sourcelib.NewRegistry()
	if _, err := Load(mapPath, libs); err == nil {
		t.Fatal("expected an error for a line that isn't a library declaration")
	}
}

func TestLoadRejectsLibraryWithNoPatterns(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "design.map")
	writeFile(t, mapPath, "library rtl;\n")

	libs := sourcelib.NewRegistry()
	if _, err := Load(mapPath, libs); err == nil {
		t.Fatal("expected an error for a library declaration with no glob patterns")
	}
}

func TestLoadMissingFile(t *testing.T) {
	libs := sourcelib.NewRegistry()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.map"), libs); err == nil {
		t.Fatal("expected an error opening a nonexistent library map file")
	}
}
