// Package scan finds the package files a batch pass works on: the direct
// regular-file entries of one directory whose extension equals a target
// literal.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pkgbatch/internal/config"
	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"

	"github.com/gobwas/glob"
)

// Scanner lists matching files in a directory.
type Scanner struct {
	extension string
	ignore    []glob.Glob
}

// New creates a Scanner matching extension exactly (case-sensitive) and
// skipping names that match any of the ignore glob patterns.
func New(extension string, ignore ...string) (*Scanner, error) {
	s := &Scanner{extension: extension}
	for i, pattern := range ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.NewConfigError("invalid ignore pattern", pattern, errors.InvalidPattern, err)
		}
		log.Debugf("ignore pattern %d: %s", i, pattern)
		s.ignore = append(s.ignore, g)
	}
	return s, nil
}

// NewWithConfig creates a Scanner from the batch settings of cfg.
func NewWithConfig(cfg *config.Config) (*Scanner, error) {
	return New(cfg.Batch.Extension, cfg.Batch.Ignore...)
}

// Extension returns the configured target extension.
func (s *Scanner) Extension() string {
	return s.extension
}

// ListMatchingFiles lists the default .pkg files of baseDirectory.
func ListMatchingFiles(baseDirectory string) ([]string, error) {
	s := &Scanner{extension: config.DefaultExtension}
	return s.ListMatchingFiles(baseDirectory)
}

// ListMatchingFiles returns the names (not paths) of the direct entries of
// baseDirectory that are regular files with the target extension, in the
// order the directory listing produced them. The names are not sorted.
// An empty baseDirectory means the current directory.
//
// A directory that cannot be listed yields a DirectoryAccess error. An
// entry that cannot be stat'ed is skipped.
func (s *Scanner) ListMatchingFiles(baseDirectory string) ([]string, error) {
	if baseDirectory == "" {
		baseDirectory = config.DefaultBaseDirectory
	}

	entries, err := readDir(baseDirectory)
	if err != nil {
		return nil, errors.NewFileError("cannot list directory", baseDirectory, errors.DirectoryAccess, err)
	}

	matched := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !s.MatchName(name) {
			continue
		}
		if !isRegular(baseDirectory, entry) {
			log.LogWithFields(log.F("name", name)).Debug("skipping non-regular entry")
			continue
		}
		matched = append(matched, name)
	}

	log.LogWithFields(log.F("directory", baseDirectory), log.F("matched", len(matched))).Debug("directory scanned")
	return matched, nil
}

// MatchName reports whether name has the target extension and is not
// excluded by an ignore pattern. It does not touch the filesystem.
func (s *Scanner) MatchName(name string) bool {
	if Extension(name) != s.extension {
		return false
	}
	for _, g := range s.ignore {
		if g.Match(name) {
			return false
		}
	}
	return true
}

// IsCandidate reports whether path names a regular file (following
// symlinks) whose base name passes MatchName.
func (s *Scanner) IsCandidate(path string) bool {
	if !s.MatchName(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// readDir returns the entries of dir in the order the directory yields
// them, unlike os.ReadDir which sorts by name.
func readDir(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}

func isRegular(dir string, entry fs.DirEntry) bool {
	mode := entry.Type()
	if mode.IsRegular() {
		return true
	}
	if mode&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Extension returns the extension of name: the suffix starting at the last
// period. Leading periods do not start an extension, so ".pkg" and "..pkg"
// have none while "a.pkg" has ".pkg".
func Extension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return ""
	}
	if strings.TrimLeft(name[:dot], ".") == "" {
		return ""
	}
	return name[dot:]
}
