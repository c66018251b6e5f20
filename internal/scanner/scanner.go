package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Document is one literate document found under the input root
type Document struct {
	Path   string // Absolute path
	RelDir string // Directory relative to the root in slash form, "" or ending in "/"
}

// Scanner walks a directory tree looking for literate documents
type Scanner struct {
	fs         afero.Fs
	extensions []string
}

// New creates a scanner matching the given extensions (".md" when empty)
func New(fs afero.Fs, extensions []string) *Scanner {
	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &Scanner{fs: fs, extensions: normalized}
}

// Scan returns the documents under root in lexical walk order. root must be
// an existing directory.
func (s *Scanner) Scan(root string) ([]Document, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", root)
	}

	var docs []Document
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !s.matches(path) {
			return nil
		}
		docs = append(docs, Document{Path: path, RelDir: relDir(root, path)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Scanner) matches(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range s.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func relDir(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel) + "/"
}
