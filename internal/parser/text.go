package parser

import (
	"bufio"
	"bytes"
	"strings"
)

// openText lays out plain text line by line. Form feeds start a new page.
func openText(data []byte, opts Options) (Document, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	p := newPaginator(opts)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\f")
		for i, part := range parts {
			if i > 0 {
				p.pageBreak()
			}
			p.add(part)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.document(), nil
}
