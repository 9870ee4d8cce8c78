package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"nexusrag/internal/domain"
)

// Failure records a file that was recognized but could not be parsed.
type Failure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

type parseFunc func(path string) (string, error)

// Loader reads all recognized files from a directory. Each extension maps to
// a dedicated parser; anything else is ignored.
type Loader struct {
	log     *zap.Logger
	parsers map[string]parseFunc
}

func New(log *zap.Logger) *Loader {
	return &Loader{
		log: log,
		parsers: map[string]parseFunc{
			".txt":  parsePlainText,
			".md":   parsePlainText,
			".pdf":  parsePDF,
			".docx": parseDocx,
		},
	}
}

// Supported reports whether the file name has a recognized extension.
func (l *Loader) Supported(name string) bool {
	_, ok := l.parsers[strings.ToLower(filepath.Ext(name))]
	return ok
}

// LoadDir loads every recognized file directly under dir. A parser failure
// skips that file and records it; the load itself only fails when the
// directory cannot be read. An empty directory yields an empty slice, not an
// error; the index builder decides whether that is fatal.
func (l *Loader) LoadDir(dir string) ([]domain.Document, []Failure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	// Deterministic document order regardless of directory iteration.
	sort.Strings(names)

	var docs []domain.Document
	var failures []Failure
	for _, name := range names {
		parse, ok := l.parsers[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		content, err := parse(path)
		if err != nil {
			failures = append(failures, Failure{File: name, Reason: err.Error()})
			l.log.Warn("skipping unparseable file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:      hashPath(path),
			Path:    path,
			Source:  name,
			Content: content,
		})
	}
	return docs, failures, nil
}

func parsePlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parsePDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, reader); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func hashPath(path string) string {
	h := sha1.Sum([]byte(path))
	return hex.EncodeToString(h[:8])
}
