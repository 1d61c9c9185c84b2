package render

import (
	"regexp"
	"strings"
)

var (
	viewContentRe = regexp.MustCompile(`\[Using tool:\s*view_content\s+([^\]\n]+)\](?:\\n|\n)?`)
	saveReportRe  = regexp.MustCompile(`\[Using tool:\s*save_report\b`)
)

// ViewContentPaths returns the normalized view_content paths of text,
// deduplicated in first-seen order.
func ViewContentPaths(text string) []string {
	var paths []string
	seen := make(map[string]bool)

	for _, m := range viewContentRe.FindAllStringSubmatch(text, -1) {
		p := NormalizePath(m[1])
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

// NormalizePath trims p and strips one pair of matching surrounding quotes.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 {
		first, last := p[0], p[len(p)-1]
		if first == last && (first == '"' || first == '\'') {
			p = p[1 : len(p)-1]
		}
	}
	return p
}

// HasSaveReport reports whether text contains a save_report tool marker.
func HasSaveReport(text string) bool {
	return saveReportRe.MatchString(text)
}

// CodeFence formats fetched file content as an appended fenced block.
func CodeFence(lang, content string) string {
	return "\n\n```" + lang + "\n" + content + "\n```\n"
}
