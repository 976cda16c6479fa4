package pages

import (
	"strings"

	"golang.org/x/net/html"
)

const excerptLength = 160

var excerptSkippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

// Excerpt returns a short plain-text preview of HTML content.
func Excerpt(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var builder strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if _, skip := excerptSkippedElements[strings.ToLower(node.Data)]; skip {
				return
			}
		}
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
			builder.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	text := strings.Join(strings.Fields(builder.String()), " ")
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
