package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	w.Close()
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r><w:r><w:t> with two runs</w:t></w:r></w:p>
</w:body>
</w:document>`

	text, err := New().Extract(createTestDOCX(docXML))
	require.NoError(t, err)
	assert.Equal(t, "Hello World\nSecond paragraph with two runs", text)
}

func TestExtract_NotAZip(t *testing.T) {
	_, err := New().Extract([]byte("plain text, not a zip"))
	assert.ErrorIs(t, err, ErrNotDocx)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	_, err := New().Extract(createTestDOCX(""))
	assert.ErrorIs(t, err, ErrNotDocx)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx"}, New().Extensions())
}
