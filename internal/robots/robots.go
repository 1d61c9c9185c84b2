// Package robots renders the crawler policy served alongside the client.
package robots

import "strings"

// Crawlers lists every user agent the policy disallows, search and AI agents alike.
var Crawlers = []string{
	"*",
	"GPTBot",
	"ChatGPT-User",
	"Google-Extended",
	"CCBot",
	"anthropic-ai",
	"ClaudeBot",
	"Bytespider",
	"cohere-ai",
	"PerplexityBot",
	"Amazonbot",
	"FacebookBot",
	"Applebot-Extended",
	"Meta-ExternalAgent",
}

// Text returns robots.txt disallowing each crawler at the root.
func Text() string {
	var b strings.Builder
	for i, agent := range Crawlers {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User-Agent: " + agent + "\n")
		b.WriteString("Disallow: /\n")
	}
	return b.String()
}
