package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// minParagraphChars is the length a paragraph needs to count toward a block's score
const minParagraphChars = 25

// boilerplate elements never contribute readable text
var boilerplate = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Svg:      true,
	atom.Button:   true,
	atom.Template: true,
}

// ArticleExtractor isolates the readable main content of an HTML page
type ArticleExtractor struct {
	maxChars int
}

// NewArticleExtractor creates an extractor that keeps at most maxChars runes.
// A non-positive maxChars uses model.MaxEvidenceText.
func NewArticleExtractor(maxChars int) *ArticleExtractor {
	if maxChars <= 0 {
		maxChars = model.MaxEvidenceText
	}
	return &ArticleExtractor{maxChars: maxChars}
}

// Extract returns whitespace-collapsed plain text of the page's main content
func (e *ArticleExtractor) Extract(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := mainRegion(doc)
	if root == nil {
		return "", nil
	}

	text := collapseWhitespace(visibleText(root))
	return FirstRunes(text, e.maxChars), nil
}

// mainRegion picks the node most likely to hold the article body:
// <article>, then <main>, then role=main, then the best-scoring block
func mainRegion(doc *html.Node) *html.Node {
	if n := largestElement(doc, func(n *html.Node) bool { return n.DataAtom == atom.Article }); n != nil {
		return n
	}
	if n := largestElement(doc, func(n *html.Node) bool { return n.DataAtom == atom.Main }); n != nil {
		return n
	}
	if n := largestElement(doc, func(n *html.Node) bool { return attr(n, "role") == "main" }); n != nil {
		return n
	}
	if n := bestScoringBlock(doc); n != nil {
		return n
	}
	if body := findFirst(doc, atom.Body); body != nil {
		return body
	}
	return doc
}

// largestElement returns the matching element with the most visible text.
// Elements with no visible text are ignored.
func largestElement(doc *html.Node, match func(*html.Node) bool) *html.Node {
	var best *html.Node
	bestLen := 0

	walkElements(doc, func(n *html.Node) {
		if !match(n) {
			return
		}
		if l := len(strings.TrimSpace(visibleText(n))); l > bestLen {
			best, bestLen = n, l
		}
	})

	return best
}

// bestScoringBlock scores each paragraph's parent by the paragraph's text
// length, with half credit to the grandparent, and returns the top scorer
func bestScoringBlock(doc *html.Node) *html.Node {
	scores := make(map[*html.Node]int)
	var order []*html.Node

	credit := func(n *html.Node, amount int) {
		if n == nil || n.Type != html.ElementNode || amount <= 0 {
			return
		}
		if _, ok := scores[n]; !ok {
			order = append(order, n)
		}
		scores[n] += amount
	}

	walkElements(doc, func(n *html.Node) {
		if n.DataAtom != atom.P && n.DataAtom != atom.Pre && n.DataAtom != atom.Blockquote {
			return
		}
		l := len(collapseWhitespace(visibleText(n)))
		if l < minParagraphChars {
			return
		}
		credit(n.Parent, l)
		if n.Parent != nil {
			credit(n.Parent.Parent, l/2)
		}
	})

	var best *html.Node
	bestScore := 0
	for _, n := range order {
		if scores[n] > bestScore {
			best, bestScore = n, scores[n]
		}
	}
	return best
}

// walkElements visits every element outside boilerplate subtrees
func walkElements(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		if boilerplate[n.DataAtom] {
			return
		}
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, visit)
	}
}

// visibleText concatenates text nodes, skipping boilerplate and hidden elements
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if boilerplate[n.DataAtom] || hidden(n) {
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		// Keep block boundaries from gluing words together
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			buf.WriteByte(' ')
		}
	}

	walk(n)
	return buf.String()
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Section,
		atom.Article, atom.Main, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Tr, atom.Td, atom.Th, atom.Table, atom.Figcaption:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	return ""
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// collapseWhitespace replaces runs of whitespace with a single space
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
