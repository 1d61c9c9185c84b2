// Package preview performs the artifact pane's side effects in a terminal:
// materialising HTML and images as files, opening them, and copying source.
package preview

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"Agent311/internal/render"
)

var ErrNotImage = errors.New("not a base64 data:image URL")

// SandboxedHTML wraps doc in a frame that may run scripts but gets no
// same-origin privileges.
func SandboxedHTML(title, doc string) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("<style>html,body{margin:0;height:100%}iframe{border:0;width:100%;height:100%}</style>\n")
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<iframe sandbox=\"allow-scripts\" srcdoc=\"%s\"></iframe>\n", html.EscapeString(doc))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// DecodeImage splits a data:image/<type>;base64,<data> URL.
func DecodeImage(dataURL string) (ext string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:image/")
	if !ok {
		return "", nil, ErrNotImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotImage
	}
	kind, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 || kind == "" {
		return "", nil, ErrNotImage
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if kind == "svg+xml" {
		kind = "svg"
	}
	return "." + kind, data, nil
}

// Materialize writes code to a file in dir suited to its pane mode and
// returns the path: images are decoded, HTML is sandboxed, JSX is written
// as source.
func Materialize(dir, code string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	mode := render.Classify(code)
	var (
		content []byte
		pattern string
	)
	switch mode {
	case render.ModeImage:
		ext, data, err := DecodeImage(code)
		if err != nil {
			return "", err
		}
		content, pattern = data, "preview-*"+ext
	case render.ModeHTML:
		content, pattern = []byte(SandboxedHTML(mode.Title(), code)), "preview-*.html"
	default:
		content, pattern = []byte(code), "component-*.tsx"
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	return f.Name(), nil
}

// Opener launches the platform viewer for a file.
type Opener func(path string) error

// SystemOpener opens path with the desktop's default application.
func SystemOpener(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	go cmd.Wait()
	return nil
}

// Copy puts text on the system clipboard.
func Copy(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
