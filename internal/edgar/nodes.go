package edgar

import (
	"strings"

	"golang.org/x/net/html"
)

// findElements collects every element named tag beneath n; when class is
// non-empty the element's class attribute must contain it.
func findElements(n *html.Node, tag, class string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			if class == "" || strings.Contains(attrValue(n, "class"), class) {
				found = append(found, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// childElements returns the direct element children of n named tag.
func childElements(n *html.Node, tag string) []*html.Node {
	var cells []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			cells = append(cells, c)
		}
	}
	return cells
}

// firstHref returns the href of the first anchor beneath n, or "".
func firstHref(n *html.Node) string {
	var aTag *html.Node
	var findATag func(*html.Node)
	findATag = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			aTag = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if aTag != nil {
				return
			}
			findATag(c)
		}
	}
	findATag(n)

	if aTag == nil {
		return ""
	}
	return strings.TrimSpace(attrValue(aTag, "href"))
}

// allHrefs returns every anchor href beneath n in document order.
func allHrefs(n *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := strings.TrimSpace(attrValue(n, "href")); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hrefs
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText concatenates all text nodes beneath n.
func extractText(n *html.Node) string {
	var extract func(*html.Node) string
	extract = func(n *html.Node) string {
		if n.Type == html.TextNode {
			return n.Data
		}
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			sb.WriteString(extract(c))
		}
		return sb.String()
	}
	return extract(n)
}

// DocumentText flattens an HTML document into whitespace-collapsed text,
// skipping script and style bodies.
func DocumentText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return strings.Join(strings.Fields(htmlContent), " ")
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
