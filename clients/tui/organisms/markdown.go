package organisms

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// markdownRenderer returns a renderer wrapping at width, built once per width.
func markdownRenderer(width int) *glamour.TermRenderer {
	renderersMu.Lock()
	defer renderersMu.Unlock()

	if r, ok := renderers[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil
	}
	renderers[width] = r
	return r
}

// RenderMarkdown renders agent text for the terminal. On failure the text is
// returned unchanged.
func RenderMarkdown(content string, width int) string {
	if content == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	r := markdownRenderer(width)
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
