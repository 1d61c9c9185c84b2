package robots

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextDisallowsEveryCrawler(t *testing.T) {
	text := Text()

	assert.True(t, strings.HasPrefix(text, "User-Agent: *\nDisallow: /\n"))
	assert.Equal(t, len(Crawlers), strings.Count(text, "Disallow: /\n"))
	assert.Contains(t, text, "User-Agent: ClaudeBot\nDisallow: /\n")
}
