// Package extract converts source files to the plain text the knowledge
// engine ingests. Binary and markup formats are reduced to readable
// text here so the core only ever sees plain content.
package extract

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

// Formats maps supported file extensions to their format tag.
var Formats = map[string]string{
	".txt":  "txt",
	".md":   "md",
	".html": "html",
	".htm":  "html",
}

// Supported reports whether path has a recognized extension.
func Supported(path string) bool {
	_, ok := Formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// File reduces raw file content to plain text based on the path's
// extension. Unrecognized extensions are treated as plain text and
// tagged with the bare extension (or "txt" when there is none).
func File(path string, data []byte) (text, format string) {
	ext := strings.ToLower(filepath.Ext(path))
	content := string(data)

	switch Formats[ext] {
	case "md":
		return stripMarkdown(content), "md"
	case "html":
		return stripHTML(content), "html"
	}

	format = strings.TrimPrefix(ext, ".")
	if format == "" {
		format = "txt"
	}
	return strings.TrimSpace(content), format
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`[^`]+`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListItem   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting. Code blocks are
// dropped entirely; links keep their text.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListItem.ReplaceAllString(content, "")
	content = mdNumbered.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

var (
	htmlScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHead       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlSVG        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlBlockClose = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBreak      = regexp.MustCompile(`(?i)<(?:br|hr)\s*/?>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
)

// stripHTML removes markup and extracts readable text. Script, style,
// head, and svg subtrees are dropped; block boundaries become newlines.
func stripHTML(content string) string {
	content = htmlScript.ReplaceAllString(content, "")
	content = htmlStyle.ReplaceAllString(content, "")
	content = htmlHead.ReplaceAllString(content, "")
	content = htmlSVG.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")

	content = htmlBlockOpen.ReplaceAllString(content, "\n")
	content = htmlBlockClose.ReplaceAllString(content, "\n")
	content = htmlBreak.ReplaceAllString(content, "\n")
	content = htmlTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	content = strings.Join(lines, "\n")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
