// Package extract flattens an HTML document into per-element tag records.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tag describes a single element: its name, the text written directly
// inside it (descendant text excluded), its path from the document root,
// and its attributes.
type Tag struct {
	Type       string
	Text       string
	Path       string
	Attributes map[string]string
}

// Tags parses doc and returns one record per element, in document order.
func Tags(doc string) ([]Tag, error) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tags []Tag
	parsed.Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		tags = append(tags, Tag{
			Type:       node.Data,
			Text:       directText(node),
			Path:       elementPath(node),
			Attributes: attributes(node),
		})
	})
	return tags, nil
}

// directText gathers the element's own text nodes, whitespace-normalized.
func directText(node *html.Node) string {
	var parts []string
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			parts = append(parts, strings.Fields(child.Data)...)
		}
	}
	return strings.Join(parts, " ")
}

// elementPath joins the element's own name and its element ancestors
// outermost-first with " > " (the root yields "html"). An empty path
// reports "document_fragment".
func elementPath(node *html.Node) string {
	var names []string
	for p := node; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		names = append(names, p.Data)
	}
	if len(names) == 0 {
		return "document_fragment"
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " > ")
}

func attributes(node *html.Node) map[string]string {
	attrs := make(map[string]string, len(node.Attr))
	for _, a := range node.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}
