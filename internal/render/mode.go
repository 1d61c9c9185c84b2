package render

import "strings"

// Mode is how the artifact pane presents a code string
type Mode int

const (
	ModeJSX Mode = iota
	ModeHTML
	ModeImage
)

// Classify picks the pane mode: data:image URLs are images, documents
// starting with <!doctype or <html are HTML, everything else is JSX/TSX.
func Classify(code string) Mode {
	if strings.HasPrefix(code, "data:image/") {
		return ModeImage
	}
	head := strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		return ModeHTML
	}
	return ModeJSX
}

func (m Mode) String() string {
	switch m {
	case ModeImage:
		return "image"
	case ModeHTML:
		return "html"
	default:
		return "jsx"
	}
}

// Title is the pane header for the mode
func (m Mode) Title() string {
	switch m {
	case ModeImage:
		return "Image Preview"
	case ModeHTML:
		return "HTML Preview"
	default:
		return "JSX Preview"
	}
}

// SourceName is the file name shown in source view. Images have no source view.
func (m Mode) SourceName() string {
	switch m {
	case ModeHTML:
		return "page.html"
	case ModeJSX:
		return "component.tsx"
	default:
		return ""
	}
}

// HasSource reports whether the mode offers a source view with copy.
func (m Mode) HasSource() bool {
	return m != ModeImage
}
