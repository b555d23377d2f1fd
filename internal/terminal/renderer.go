package terminal

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer Markdown 渲染器
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer 创建 Renderer
func NewRenderer(width int) (*Renderer, error) {
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Renderer{term: term}, nil
}

// Render 渲染 markdown
func (r *Renderer) Render(markdown string) string {
	if r == nil || r.term == nil {
		return markdown
	}
	out, err := r.term.Render(markdown)
	if err != nil {
		// 降级：返回原始文本
		return markdown
	}
	return out
}

// RenderReport renders a tool report. The first line becomes a heading and
// the remaining "Key: value" lines keep their layout inside a code block.
func (r *Renderer) RenderReport(report string) string {
	if r == nil {
		return report
	}
	head, body, _ := strings.Cut(strings.TrimRight(report, "\n"), "\n")
	var b strings.Builder
	b.WriteString("**" + head + "**\n")
	if body != "" {
		b.WriteString("\n```\n" + body + "\n```\n")
	}
	return r.Render(b.String())
}
