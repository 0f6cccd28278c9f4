// Package htmltext converts HTML files to plain text. Script, style
// and head sections are dropped entirely; block elements become line
// breaks.
package htmltext

import (
	"html"
	"regexp"
	"strings"
)

// Reader handles HTML files.
type Reader struct{}

// New creates an HTML reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	openBlocks    = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	closeBlocks   = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	lineBreaks    = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	runsOfSpaces  = regexp.MustCompile(`[ \t]+`)
	runsOfNewline = regexp.MustCompile(`\n{3,}`)
)

// Extract strips tags and entities, keeping the readable text with one
// line per block element.
func (r *Reader) Extract(data []byte) (string, error) {
	content := string(data)

	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlocks.ReplaceAllString(content, "\n")
	content = closeBlocks.ReplaceAllString(content, "\n")
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = runsOfSpaces.ReplaceAllString(content, " ")
	content = runsOfNewline.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}
