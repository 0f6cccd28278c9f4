package eml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Quarterly report\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"The numbers look good this quarter.\r\n"

	text, err := New().Extract([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, text, "From: alice@example.com")
	assert.Contains(t, text, "Subject: Quarterly report")
	assert.Contains(t, text, "The numbers look good this quarter.")
}

func TestExtract_MultipartPrefersPlainText(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--XYZ--\r\n"

	text, err := New().Extract([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, text, "plain version")
	assert.NotContains(t, text, "html version")
}

func TestExtract_HTMLBodyStripped(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body><p>rendered text</p></body></html>\r\n"

	text, err := New().Extract([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, text, "rendered text")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_EncodedSubject(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: =?UTF-8?Q?caf=C3=A9_notes?=\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	text, err := New().Extract([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, text, "café notes")
}

func TestExtract_NotAnEmail(t *testing.T) {
	_, err := New().Extract([]byte("no headers here"))
	assert.ErrorIs(t, err, ErrNotEmail)
}
