// Package render turns finalized assistant text into a render plan of tool
// groups, prose and artifact cards. Everything here is pure.
package render

import (
	"regexp"
	"strings"
)

var (
	toolMarkerRe = regexp.MustCompile(`[ \t]*\[Using tool:\s*([^\s\]]+)([^\]]*)\](?:\\n|\n)?`)
	codeBlockRe  = regexp.MustCompile("```(jsx|tsx|html|js|javascript)\n([\\s\\S]*?)```")
	titleTagRe   = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
)

var toolLabels = map[string]string{
	"Write":        "Created a file",
	"Read":         "Read a file",
	"Edit":         "Edited a file",
	"Bash":         "Ran a command",
	"Search":       "Searched",
	"Grep":         "Searched files",
	"Glob":         "Found files",
	"WebFetch":     "Fetched a page",
	"WebSearch":    "Searched the web",
	"view_content": "Viewed content",
}

// Node is one element of a render plan: *ToolGroup, *Prose or *Artifact.
type Node interface {
	node()
}

// ToolCall is a single deduplicated tool invocation
type ToolCall struct {
	Name  string
	Args  string
	Label string
	Title string
}

type ToolGroup struct {
	Tools []ToolCall
}

type Prose struct {
	Text string
}

// Artifact is a fenced code block surfaced as an openable card
type Artifact struct {
	Lang     string // fence tag as written
	Language string // display label
	Title    string
	Code     string
}

func (*ToolGroup) node() {}
func (*Prose) node()     {}
func (*Artifact) node()  {}

// Plan is the ordered render tree of one message
type Plan struct {
	Nodes []Node
}

// ToolGroup returns the plan's tool group, or nil.
func (p Plan) ToolGroup() *ToolGroup {
	for _, n := range p.Nodes {
		if g, ok := n.(*ToolGroup); ok {
			return g
		}
	}
	return nil
}

// Prose returns the plan's prose text, or "".
func (p Plan) Prose() string {
	for _, n := range p.Nodes {
		if pr, ok := n.(*Prose); ok {
			return pr.Text
		}
	}
	return ""
}

// Artifacts returns the artifact cards in source order.
func (p Plan) Artifacts() []*Artifact {
	var out []*Artifact
	for _, n := range p.Nodes {
		if a, ok := n.(*Artifact); ok {
			out = append(out, a)
		}
	}
	return out
}

// Parse builds the render plan: at most one tool group, then the prose when
// non-empty, then one artifact per code block.
func Parse(text string) Plan {
	var plan Plan

	if tools := ExtractTools(text); len(tools) > 0 {
		plan.Nodes = append(plan.Nodes, &ToolGroup{Tools: tools})
	}
	if prose := Strip(text); prose != "" {
		plan.Nodes = append(plan.Nodes, &Prose{Text: prose})
	}
	for _, a := range ExtractArtifacts(text) {
		plan.Nodes = append(plan.Nodes, a)
	}
	return plan
}

// ExtractTools returns the tool markers of text, deduplicated on "NAME ARGS"
// with the first occurrence deciding the order.
func ExtractTools(text string) []ToolCall {
	var tools []ToolCall
	seen := make(map[string]bool)

	for _, m := range toolMarkerRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		args := strings.TrimSpace(m[2])
		key := strings.TrimSpace(name + " " + args)
		if seen[key] {
			continue
		}
		seen[key] = true

		label := ToolLabel(name)
		title := label
		if args != "" {
			title = label + " " + args
		}
		tools = append(tools, ToolCall{Name: name, Args: args, Label: label, Title: title})
	}
	return tools
}

// ExtractArtifacts returns one artifact per recognised fenced block.
func ExtractArtifacts(text string) []*Artifact {
	var artifacts []*Artifact
	for _, m := range codeBlockRe.FindAllStringSubmatch(text, -1) {
		code := strings.TrimSuffix(m[2], "\n")
		artifacts = append(artifacts, &Artifact{
			Lang:     m[1],
			Language: LanguageLabel(m[1]),
			Title:    artifactTitle(code),
			Code:     code,
		})
	}
	return artifacts
}

// Strip removes code blocks, collapses tool markers to newlines and trims.
func Strip(text string) string {
	text = codeBlockRe.ReplaceAllString(text, "")
	text = toolMarkerRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// ToolLabel maps a tool name to its human label; unknown names pass through.
func ToolLabel(name string) string {
	if label, ok := toolLabels[name]; ok {
		return label
	}
	return name
}

func LanguageLabel(lang string) string {
	switch lang {
	case "js", "javascript":
		return "JavaScript"
	case "html":
		return "HTML"
	default:
		return strings.ToUpper(lang)
	}
}

func artifactTitle(code string) string {
	if m := titleTagRe.FindStringSubmatch(code); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return "Index"
}
