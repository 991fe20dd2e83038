package document

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is one node of a parsed page: an element, a text node, or the
// document root. A nil *Node is valid and answers every query with
// nothing, which lets callers chain lookups and check once at the end.
type Node struct {
	n *html.Node
}

func newNode(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n}
}

// IsElement reports whether the node is an HTML element.
func (n *Node) IsElement() bool {
	return n != nil && n.n.Type == html.ElementNode
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool {
	return n != nil && n.n.Type == html.TextNode
}

// Tag returns the element name, or "" for non-elements.
func (n *Node) Tag() string {
	if !n.IsElement() {
		return ""
	}
	return n.n.Data
}

// Attr returns the value of the attribute key.
func (n *Node) Attr(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text of the node and its descendants.
// Comments are skipped. The text is returned as it appears in the page,
// without trimming.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.n.Type == html.TextNode {
		return n.n.Data
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n.n)
	return b.String()
}

// NextSibling returns the node immediately after n, text nodes included.
func (n *Node) NextSibling() *Node {
	if n == nil {
		return nil
	}
	return newNode(n.n.NextSibling)
}

// Children returns the direct children of n, text nodes included.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, newNode(c))
	}
	return out
}

// Child returns the i-th direct child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 {
		return nil
	}
	c := n.n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return newNode(c)
}

// FindByID returns the first descendant whose id is id.
func (n *Node) FindByID(id string) *Node {
	return n.first(`[id="` + quote(id) + `"]`)
}

// FindByClass returns the first descendant carrying class.
func (n *Node) FindByClass(class string) *Node {
	return n.first(`[class~="` + quote(class) + `"]`)
}

// FindByAttr returns the first descendant whose attribute key equals value.
func (n *Node) FindByAttr(key, value string) *Node {
	return n.first(`[` + key + `="` + quote(value) + `"]`)
}

// FindByAttrMatch returns the first descendant whose attribute key
// matches pattern anywhere in its value.
func (n *Node) FindByAttrMatch(key string, pattern *regexp.Regexp) *Node {
	sel := n.selection()
	if sel == nil {
		return nil
	}
	var found *html.Node
	sel.Find(`[` + key + `]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(key); ok && pattern.MatchString(v) {
			found = s.Get(0)
			return false
		}
		return true
	})
	return newNode(found)
}

// FindAll returns every descendant element named tag, in document order.
func (n *Node) FindAll(tag string) []*Node {
	return n.all(tag)
}

// FindAllWithAttr returns every descendant element named tag whose
// attribute key equals value.
func (n *Node) FindAllWithAttr(tag, key, value string) []*Node {
	return n.all(tag + `[` + key + `="` + quote(value) + `"]`)
}

// AnchorHrefs returns the href of every descendant <a> that has one, in
// document order. Values are returned verbatim.
func (n *Node) AnchorHrefs() []string {
	sel := n.selection()
	if sel == nil {
		return nil
	}
	var hrefs []string
	sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

func (n *Node) selection() *goquery.Selection {
	if n == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(n.n).Selection
}

func (n *Node) first(selector string) *Node {
	sel := n.selection()
	if sel == nil {
		return nil
	}
	match := sel.Find(selector)
	if match.Length() == 0 {
		return nil
	}
	return newNode(match.Get(0))
}

func (n *Node) all(selector string) []*Node {
	sel := n.selection()
	if sel == nil {
		return nil
	}
	nodes := sel.Find(selector).Nodes
	out := make([]*Node, 0, len(nodes))
	for _, hn := range nodes {
		out = append(out, newNode(hn))
	}
	return out
}

var selectorQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote escapes s for use inside a double-quoted attribute selector value.
func quote(s string) string {
	return selectorQuoter.Replace(s)
}
