// Package docx extracts text from Word documents. A .docx file is a
// ZIP archive; the text lives in word/document.xml as runs inside
// paragraphs.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotDocx is returned when the file is not a readable Word document.
var ErrNotDocx = errors.New("not a docx file")

// Reader handles Word documents.
type Reader struct{}

// New creates a DOCX reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".docx"}
}

// Extract unzips the archive and joins the paragraph text of
// word/document.xml with newlines.
func (r *Reader) Extract(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		return paragraphText(content)
	}
	return "", fmt.Errorf("%w: missing word/document.xml", ErrNotDocx)
}

type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func paragraphText(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var out strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			out.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				out.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
