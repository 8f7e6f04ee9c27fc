package services

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

// SupportedExtensions lists the upload formats text can be read from.
var SupportedExtensions = []string{".txt", ".pdf", ".docx"}

const maxDocumentXML = 20 * 1024 * 1024

type FileExtractService struct {
	readers map[string]func(path string) (string, error)
}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{
		readers: map[string]func(string) (string, error){
			".txt":  readTXT,
			".pdf":  readPDF,
			".docx": readDOCX,
		},
	}
}

// ExtractTextFromPath picks a reader by file extension and returns the
// normalized text of the document.
func (s *FileExtractService) ExtractTextFromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	read, ok := s.readers[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}

	raw, err := read(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ext, err)
	}

	text := normalizeExtractedText(raw)
	if text == "" {
		return "", fmt.Errorf("no extractable text found in %s file", strings.TrimPrefix(ext, "."))
	}
	return text, nil
}

func readTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func readDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML))
		if err != nil {
			return "", err
		}
		return stripDOCXML(string(data)), nil
	}

	return "", errors.New("docx document.xml not found")
}

var (
	xmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	docxBreaks    = strings.NewReplacer(
		"</w:p>", "\n",
		"<w:br/>", "\n",
		"<w:br />", "\n",
		"<w:tab/>", "\t",
	)
	xmlEntities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

func stripDOCXML(s string) string {
	s = docxBreaks.Replace(s)
	s = xmlTagPattern.ReplaceAllString(s, "")
	return xmlEntities.Replace(s)
}

// normalizeExtractedText trims every line and collapses runs of blank lines.
func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				b.WriteString("\n")
			}
			blank = true
			continue
		}
		blank = false
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
