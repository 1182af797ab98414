package discovery

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// pressLinks collects unique anchor hrefs pointing at press pages from the
// listing HTML. Parse errors yield an empty set; the caller treats that the
// same as a listing with no links.
func pressLinks(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.Contains(attr.Val, pressLinkPrefix) {
					continue
				}
				if _, dup := seen[attr.Val]; !dup {
					seen[attr.Val] = struct{}{}
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	sort.Strings(links)
	return links
}
