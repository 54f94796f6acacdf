package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// openMarkdown lays out top-level Markdown blocks. A thematic break (---)
// starts a new page.
func openMarkdown(data []byte, opts Options) (Document, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	p := newPaginator(opts)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.ThematicBreak:
			p.pageBreak()
		case *ast.Heading:
			p.add(extractText(node, data))
		default:
			p.addBlock(extractText(n, data))
		}
	}
	return p.document(), nil
}

// extractText gets the text content of a goldmark AST node. Leaf blocks
// (code) read their raw lines; everything else reads its inline children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			// Nested blocks (list items) go on their own line.
			if c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
