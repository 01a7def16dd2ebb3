package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// droppedElements never survive sanitizing, whatever their attributes.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Input:    true,
	atom.Svg:      true,
}

// StripAttributes renders a deep copy of every node in sel with all attributes removed except
// those named in allow. Script-like elements and comments are dropped, as are javascript: links.
// The source document is left untouched.
func StripAttributes(sel *goquery.Selection, allow ...string) (string, error) {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[strings.ToLower(a)] = true
	}

	var parts []string
	for _, n := range sel.Clone().Nodes {
		sanitizeNode(n, allowed)
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render sanitized html: %w", err)
		}
		parts = append(parts, buf.String())
	}
	return strings.Join(parts, "\n"), nil
}

func sanitizeNode(n *html.Node, allowed map[string]bool) {
	if n.Type == html.ElementNode {
		kept := make([]html.Attribute, 0, len(n.Attr))
		for _, a := range n.Attr {
			if !allowed[strings.ToLower(a.Key)] || a.Namespace != "" {
				continue
			}
			if isScriptURL(a.Val) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && droppedElements[c.DataAtom]) {
			n.RemoveChild(c)
		} else {
			sanitizeNode(c, allowed)
		}
		c = next
	}
}

func isScriptURL(v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:text/html")
}
