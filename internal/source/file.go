package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"

	"github.com/ppiankov/vocabmine/internal/model"
)

const maxFileBytes = 10 << 20

// fileExtensions lists the formats the file adapter can read
var fileExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
}

// FileAdapter reads local text, markdown, HTML and PDF files
type FileAdapter struct {
	html *HTMLAdapter
}

// NewFileAdapter creates the file adapter. HTML files are parsed with the
// same main-content rules as fetched pages.
func NewFileAdapter() *FileAdapter {
	return &FileAdapter{html: NewHTMLAdapter(nil)}
}

func (a *FileAdapter) Name() string {
	return "file"
}

func (a *FileAdapter) CanHandle(locator string) bool {
	if strings.HasPrefix(locator, "file://") {
		return true
	}
	if isHTTP(locator) {
		return false
	}
	return fileExtensions[strings.ToLower(filepath.Ext(locator))]
}

func (a *FileAdapter) Fetch(ctx context.Context, locator string) model.Document {
	path := filePath(locator)

	info, err := os.Stat(path)
	if err != nil {
		return ErrorDocument(locator, err)
	}
	if info.IsDir() {
		return ErrorDocument(locator, fmt.Errorf("%s is a directory", path))
	}
	if info.Size() > maxFileBytes {
		return ErrorDocument(locator, fmt.Errorf("file exceeds %d bytes", maxFileBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ErrorDocument(locator, err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var text string
	var page *Page

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".html", ".htm":
		page, err = a.html.ParsePage(data)
		if err == nil {
			text = page.Text
			if page.Title != "" {
				title = page.Title
			}
		}
	case ".md", ".markdown":
		text = flattenMarkdown(string(data))
	default:
		text = string(data)
	}
	if err != nil {
		return ErrorDocument(locator, err)
	}
	if strings.TrimSpace(text) == "" {
		return ErrorDocument(locator, fmt.Errorf("no readable text"))
	}

	doc := newDocument(model.SourceFile, path, title, text)
	modified := info.ModTime().UTC()
	doc.PublishedAt = &modified
	if page != nil {
		doc.Author = page.Author
		doc.Language = page.Language
		if page.PublishedAt != nil {
			doc.PublishedAt = page.PublishedAt
		}
	}
	return doc
}

// Discover expands topic as a glob, or lists readable files under a directory
func (a *FileAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	pattern := filePath(topic)
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		pattern = filepath.Join(pattern, "**", "*.{txt,text,md,markdown,html,htm,pdf}")
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	max = clampMax(max, 1000)
	results := make([]model.SourceMetadata, 0, len(matches))
	for _, match := range matches {
		if len(results) >= max {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() || !fileExtensions[strings.ToLower(filepath.Ext(match))] {
			continue
		}
		modified := info.ModTime().UTC()
		results = append(results, model.SourceMetadata{
			URL:         match,
			Title:       strings.TrimSuffix(filepath.Base(match), filepath.Ext(match)),
			SourceType:  model.SourceFile,
			PublishedAt: &modified,
		})
	}
	return results, nil
}

// filePath turns a file:// URL into a path
func filePath(locator string) string {
	if strings.HasPrefix(locator, "file://") {
		if parsed, err := url.Parse(locator); err == nil {
			return parsed.Path
		}
		return strings.TrimPrefix(locator, "file://")
	}
	return locator
}

// pdfText concatenates the plain text of every page
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}
