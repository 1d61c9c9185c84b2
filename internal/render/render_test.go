package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"",
	"plain answer",
	"prefix [Using tool: Read file.txt]\nbody",
	"see ```html\n<html><title>Hi</title></html>\n``` done",
	"[Using tool: Bash ls -la]\\nListing done",
	"[Using tool: Read a]\n[Using tool: Read a]\n[Using tool: Read b]\nok",
	"intro\n```jsx\nexport default () => <div/>\n```\nmid\n```js\nconsole.log(1)\n```\n[Using tool: Write app.jsx]\ntail",
	"```python\nprint(1)\n```",
	"[Using tool: view_content /a/b.py]\\n\n\n```python\nprint(1)\n```\n",
}

func TestParseIsPure(t *testing.T) {
	for _, text := range corpus {
		assert.Equal(t, Parse(text), Parse(text), "input %q", text)
	}
}

func TestParseCompleteness(t *testing.T) {
	for _, text := range corpus {
		plan := Parse(text)

		rebuilt := text
		for _, m := range codeBlockRe.FindAllString(text, -1) {
			rebuilt = strings.Replace(rebuilt, m, "", 1)
		}
		for _, m := range toolMarkerRe.FindAllString(rebuilt, -1) {
			rebuilt = strings.Replace(rebuilt, m, "\n", 1)
		}
		assert.Equal(t, strings.TrimSpace(rebuilt), plan.Prose(), "input %q", text)

		assert.Len(t, plan.Artifacts(), len(codeBlockRe.FindAllString(text, -1)))

		distinct := map[string]bool{}
		for _, m := range toolMarkerRe.FindAllStringSubmatch(text, -1) {
			distinct[strings.TrimSpace(m[1]+" "+strings.TrimSpace(m[2]))] = true
		}
		if g := plan.ToolGroup(); g != nil {
			assert.Len(t, g.Tools, len(distinct))
		} else {
			assert.Empty(t, distinct)
		}
	}
}

func TestStripLiteralCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		prose     string
		artifacts int
		tools     int
	}{
		{
			name:      "marker inside a fenced block",
			text:      "before ```html\n<p>[Using tool: Read x]</p>\n``` after",
			prose:     "before  after",
			artifacts: 1,
			tools:     1,
		},
		{
			name:  "adjacent markers with escaped newlines",
			text:  "done[Using tool: Bash ls]\\n[Using tool: Read a.txt]\\nnext",
			prose: "done\n\nnext",
			tools: 2,
		},
		{
			name:  "indented marker between lines",
			text:  "a\n  [Using tool: Read b]\nc",
			prose: "a\n\nc",
			tools: 1,
		},
		{
			name:  "trailing marker without arguments",
			text:  "ok [Using tool: Glob]",
			prose: "ok",
			tools: 1,
		},
		{
			name:  "unrecognised fence stays in prose",
			text:  "x\n```python\nprint(1)\n```",
			prose: "x\n```python\nprint(1)\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.prose, Strip(tt.text))

			plan := Parse(tt.text)
			assert.Equal(t, tt.prose, plan.Prose())
			assert.Len(t, plan.Artifacts(), tt.artifacts)
			assert.Len(t, ExtractTools(tt.text), tt.tools)
		})
	}

	code := Parse("before ```html\n<p>[Using tool: Read x]</p>\n``` after").Artifacts()[0].Code
	assert.Equal(t, "<p>[Using tool: Read x]</p>", code)
}

func TestParseToolMarker(t *testing.T) {
	plan := Parse("prefix [Using tool: Read file.txt]\nbody")

	require.Len(t, plan.Nodes, 2)
	group, ok := plan.Nodes[0].(*ToolGroup)
	require.True(t, ok)
	require.Len(t, group.Tools, 1)
	assert.Equal(t, "Read a file file.txt", group.Tools[0].Title)

	prose, ok := plan.Nodes[1].(*Prose)
	require.True(t, ok)
	assert.Equal(t, "prefix\nbody", prose.Text)
	assert.Empty(t, plan.Artifacts())
}

func TestParseHTMLArtifact(t *testing.T) {
	plan := Parse("see ```html\n<html><title>Hi</title></html>\n``` done")

	assert.Nil(t, plan.ToolGroup())
	assert.Equal(t, "see  done", plan.Prose())

	artifacts := plan.Artifacts()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "HTML", artifacts[0].Language)
	assert.Equal(t, "Hi", artifacts[0].Title)
	assert.Equal(t, "<html><title>Hi</title></html>", artifacts[0].Code)
}

func TestParseNodeOrder(t *testing.T) {
	plan := Parse("```tsx\nconst A = 1\n```\ntext [Using tool: Glob]")

	require.Len(t, plan.Nodes, 3)
	assert.IsType(t, &ToolGroup{}, plan.Nodes[0])
	assert.IsType(t, &Prose{}, plan.Nodes[1])
	assert.IsType(t, &Artifact{}, plan.Nodes[2])
	assert.Equal(t, "Found files", plan.ToolGroup().Tools[0].Title)
	assert.Equal(t, "TSX", plan.Artifacts()[0].Language)
	assert.Equal(t, "Index", plan.Artifacts()[0].Title)
}

func TestExtractToolsDedupAndEscapes(t *testing.T) {
	tools := ExtractTools("[Using tool: Read a]\\n[Using tool: Read a]\n[Using tool: save_report q1.html]\\n[Using tool: Read b]")

	var titles []string
	for _, tc := range tools {
		titles = append(titles, tc.Title)
	}
	assert.Equal(t, []string{"Read a file a", "save_report q1.html", "Read a file b"}, titles)
	assert.Equal(t, "a\nb", Strip("a[Using tool: Bash ls]\\nb"))
}

func TestLanguageLabel(t *testing.T) {
	tests := map[string]string{
		"js":         "JavaScript",
		"javascript": "JavaScript",
		"html":       "HTML",
		"jsx":        "JSX",
		"tsx":        "TSX",
	}
	for in, want := range tests {
		assert.Equal(t, want, LanguageLabel(in))
	}
}

func TestTitleIsCaseInsensitive(t *testing.T) {
	plan := Parse("```html\n<HTML><TITLE> Report </TITLE></HTML>\n```")
	require.Len(t, plan.Artifacts(), 1)
	assert.Equal(t, "Report", plan.Artifacts()[0].Title)
}

func TestUnrecognisedFenceStaysInProse(t *testing.T) {
	plan := Parse("```python\nprint(1)\n```")
	assert.Empty(t, plan.Artifacts())
	assert.Equal(t, "```python\nprint(1)\n```", plan.Prose())
}

func TestViewContentPaths(t *testing.T) {
	text := "[Using tool: view_content /a/b.py]\\n" +
		"[Using tool: view_content \"/c d.html\"]\n" +
		"[Using tool: view_content /a/b.py]\n" +
		"[Using tool: view_content  '/e.csv' ]" +
		"[Using tool: Read /ignored]"

	assert.Equal(t, []string{"/a/b.py", "/c d.html", "/e.csv"}, ViewContentPaths(text))
	assert.Empty(t, ViewContentPaths("nothing here"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "x", NormalizePath(` "x" `))
	assert.Equal(t, "x", NormalizePath(`'x'`))
	assert.Equal(t, `"x'`, NormalizePath(`"x'`))
	assert.Equal(t, `"x"`, NormalizePath(`""x""`))
	assert.Equal(t, `"`, NormalizePath(`"`))
}

func TestHasSaveReport(t *testing.T) {
	assert.True(t, HasSaveReport("done [Using tool: save_report q1.html]"))
	assert.False(t, HasSaveReport("[Using tool: view_content /a]"))
}

func TestCodeFence(t *testing.T) {
	assert.Equal(t, "\n\n```python\nprint(1)\n```\n", CodeFence("python", "print(1)"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code  string
		mode  Mode
		title string
	}{
		{"data:image/png;base64,AAAA", ModeImage, "Image Preview"},
		{"  <!DOCTYPE html><html></html>", ModeHTML, "HTML Preview"},
		{"<html><body/></html>", ModeHTML, "HTML Preview"},
		{"export default function App() {}", ModeJSX, "JSX Preview"},
	}
	for _, tt := range tests {
		mode := Classify(tt.code)
		assert.Equal(t, tt.mode, mode, tt.code)
		assert.Equal(t, tt.title, mode.Title())
	}

	assert.Equal(t, "page.html", ModeHTML.SourceName())
	assert.Equal(t, "component.tsx", ModeJSX.SourceName())
	assert.False(t, ModeImage.HasSource())
}
