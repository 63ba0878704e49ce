// Package librarymap implements the one piece of real file I/O this
// repository performs: turning a library-map file's glob entries into
// populated SourceLibrary file sets, using doublestar the same way the
// teacher matches module source files against configured glob patterns.
//
// A library-map file is a sequence of entries of the form:
//
//	library NAME glob1 [glob2 ...] ;
//
// Blank lines and lines starting with // are ignored. Globs are resolved
// relative to the directory containing the map file itself, using doublestar
// so `**` recursive patterns work the same way the teacher's source-matching
// code expects.
package librarymap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/svlang/elaborate/internal/sourcelib"
)

// Entry is one resolved `library` declaration: the registered Library plus
// the concrete, expanded file list its globs matched.
type Entry struct {
	Library *sourcelib.Library
	Files   []string
}

// Load parses the library-map file at path, registers one sourcelib.Library
// per `library` entry into libs (in file order, so DefaultSearchOrder
// reflects the map file's own ordering), and expands each entry's glob
// patterns against the filesystem.
func Load(path string, libs *sourcelib.Registry) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening library map %s: %w", path, err)
	}
	defer f.Close()

	baseDir := filepath.Dir(path)

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		line = strings.TrimSuffix(line, ";")
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "library" {
			return nil, fmt.Errorf("%s:%d: expected \"library NAME glob...\", got %q", path, lineNo, line)
		}
		name := fields[1]
		patterns := fields[2:]
		if len(patterns) == 0 {
			return nil, fmt.Errorf("%s:%d: library %q declares no source file patterns", path, lineNo, name)
		}

		lib := libs.Register(name)
		var files []string
		for _, pattern := range patterns {
			full := pattern
			if !filepath.IsAbs(full) {
				full = filepath.Join(baseDir, pattern)
			}
			matches, err := doublestar.FilepathGlob(full)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid glob %q: %w", path, lineNo, pattern, err)
			}
			files = append(files, matches...)
		}
		entries = append(entries, Entry{Library: lib, Files: files})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading library map %s: %w", path, err)
	}

	return entries, nil
}
