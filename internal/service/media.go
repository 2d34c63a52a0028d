package service

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageAttrs are checked in order; WeChat lazy-loads images through data-src.
var imageAttrs = []string{"data-src", "src"}

// ExtractMediaURLs collects the cover and every image referenced by the
// article HTML. Only absolute http(s) URLs are kept, first occurrence wins.
func ExtractMediaURLs(content, coverURL string) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(raw string) {
		u := normalizeMediaURL(raw)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	add(coverURL)

	if strings.TrimSpace(content) == "" {
		return urls
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return urls
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range imageAttrs {
			if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
				add(v)
				return
			}
		}
	})

	return urls
}

func normalizeMediaURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// newMediaOnly returns the URLs of next that are not in known.
func newMediaOnly(next, known []string) []string {
	if len(known) == 0 {
		return next
	}
	have := make(map[string]struct{}, len(known))
	for _, u := range known {
		have[u] = struct{}{}
	}
	var out []string
	for _, u := range next {
		if _, ok := have[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}
