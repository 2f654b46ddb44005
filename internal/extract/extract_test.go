package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("notes.md"))
	assert.True(t, Supported("page.HTML"))
	assert.True(t, Supported("page.htm"))
	assert.False(t, Supported("report.pdf"))
	assert.False(t, Supported("binary"))
}

func TestFile_PlainText(t *testing.T) {
	text, format := File("notes.txt", []byte("  hello world \n"))
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "txt", format)
}

func TestFile_UnknownExtensionFallsBackToPlainText(t *testing.T) {
	text, format := File("script.py", []byte("print('hi')"))
	assert.Equal(t, "print('hi')", text)
	assert.Equal(t, "py", format)

	_, format = File("README", []byte("x"))
	assert.Equal(t, "txt", format)
}

func TestFile_Markdown(t *testing.T) {
	src := "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n- item one\n- item two\n\n```go\nfunc hidden() {}\n```\n"

	text, format := File("doc.md", []byte(src))

	assert.Equal(t, "md", format)
	assert.Contains(t, text, "Some bold text with a link.")
	assert.Contains(t, text, "item one")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "https://example.com")
	assert.NotContains(t, text, "func hidden")
}

func TestFile_HTML(t *testing.T) {
	src := `<html><head><title>Page</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><p>First &amp; second</p><div>Third</div></body></html>`

	text, format := File("page.html", []byte(src))

	assert.Equal(t, "html", format)
	assert.Contains(t, text, "First & second")
	assert.Contains(t, text, "Third")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestFile_HTMLBlockBoundariesBecomeNewlines(t *testing.T) {
	text, _ := File("page.html", []byte("<body><p>one</p><p>two</p></body>"))
	assert.Equal(t, "one\n\ntwo", text)
}
