// Package extract turns source files into cleaned, page-delimited documents.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragindex/internal/domain"
)

// pageMarker matches header/footer lines such as "পৃষ্ঠা 12" or "--- Page 3 ---".
var pageMarker = regexp.MustCompile(`(?im)^[\s\-–—]*(?:পৃষ্ঠা|page)\s*[0-9০-৯]+.*$`)

// Loader reads every supported file in a directory.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Supported reports whether path has an extension the loader can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// LoadDir loads all supported files in dir, sorted by file name. Files that
// fail or yield no text are logged and skipped. An unreadable directory is an
// error wrapping domain.ErrExtraction.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrExtraction, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		l.logger.Warn("no supported files found", "dir", dir)
	}

	var docs []domain.Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.LoadFile(filepath.Join(dir, name))
		if err != nil {
			l.logger.Warn("skipping document", "file", name, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	l.logger.Info("documents loaded", "dir", dir, "files", len(names), "documents", len(docs))
	return docs, nil
}

// LoadFile extracts a single file. The document name is the file name
// without its extension, with invalid UTF-8 replaced by U+FFFD.
func (l *Loader) LoadFile(path string) (domain.Document, error) {
	var (
		pages []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err = l.pdfPages(path)
	case ".txt", ".md":
		pages, err = textPages(path)
	default:
		return domain.Document{}, fmt.Errorf("%w: unsupported file type %q", domain.ErrExtraction, filepath.Ext(path))
	}
	if err != nil {
		return domain.Document{}, err
	}
	name := strings.ToValidUTF8(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), "\uFFFD")
	doc := NewDocument(name, pages)
	doc.Path = path
	if doc.Content == "" {
		return domain.Document{}, fmt.Errorf("%w: no text extracted from %s", domain.ErrExtraction, filepath.Base(path))
	}
	return doc, nil
}

// NewDocument cleans every page and joins the non-empty ones into Content.
func NewDocument(name string, rawPages []string) domain.Document {
	pages := make([]string, 0, len(rawPages))
	for _, p := range rawPages {
		if c := Clean(p); c != "" {
			pages = append(pages, c)
		}
	}
	return domain.Document{Name: name, Pages: pages, Content: strings.Join(pages, "\n\n")}
}

// Clean drops page marker lines, replaces invalid UTF-8 and collapses all
// whitespace runs to single spaces.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = pageMarker.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func textPages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return strings.Split(string(data), "\f"), nil
}

func (l *Loader) pdfPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrExtraction, filepath.Base(path), err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := pageText(r, i)
		if err != nil {
			l.logger.Warn("skipping page", "file", filepath.Base(path), "page", i, "err", err)
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pageText reads one page. The pdf package panics on some malformed content
// streams; that is reported as a page-level failure.
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: page %d: %v", domain.ErrExtraction, num, p)
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", domain.ErrExtraction, num, err)
	}
	return text, nil
}
