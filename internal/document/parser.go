package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrParse is returned when a page cannot be parsed as HTML.
var ErrParse = errors.New("document parse error")

// Parser turns raw page bytes into a Document.
type Parser interface {
	Parse(data []byte) (*Document, error)
}

// HTMLParser parses HTML with golang.org/x/net/html.
// It is stateless and safe for reuse.
type HTMLParser struct{}

// NewHTMLParser returns an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Parse parses data as an HTML document.
// Empty input is rejected because it cannot hold any of the elements the
// crawler looks for and usually means a truncated response.
func (p *HTMLParser) Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return &Document{
		Node: newNode(root),
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Document is a parsed page. Its embedded Node is the document root, so
// every Node query searches the whole page.
type Document struct {
	*Node

	doc *goquery.Document
}

// Contains reports whether the text content of the page contains s.
func (d *Document) Contains(s string) bool {
	return strings.Contains(d.Text(), s)
}

// Title returns the trimmed text of the <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}
