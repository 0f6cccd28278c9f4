// Package eml extracts searchable text from RFC 822 email files. The
// From, To, Date and Subject headers are kept at the top of the text
// so questions about senders and dates can be answered.
package eml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// ErrNotEmail is returned when the file cannot be parsed as a message.
var ErrNotEmail = errors.New("not an email message")

// Reader handles email files.
type Reader struct{}

// New creates an EML reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".eml"}
}

// Extract parses the message and returns headers followed by the body.
// Multipart messages prefer text/plain parts over text/html.
func (r *Reader) Extract(data []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotEmail, err)
	}

	body, err := extractBody(msg)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, header := range []string{"From", "To", "Date", "Subject"} {
		value := decodeHeader(msg.Header.Get(header))
		if value != "" {
			fmt.Fprintf(&out, "%s: %s\n", header, value)
		}
	}
	out.WriteString("\n")
	out.WriteString(body)

	return strings.TrimSpace(out.String()), nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw
// header when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", fmt.Errorf("read message body: %w", readErr)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", fmt.Errorf("read message body: %w", err)
	}
	if mediaType == "text/html" {
		return stripTags(string(body)), nil
	}
	return string(body), nil
}

func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedErr := multipartBody(bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

// stripTags removes HTML tags for basic text extraction from
// html-only messages.
func stripTags(html string) string {
	var out strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}

	lines := strings.Split(out.String(), "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
