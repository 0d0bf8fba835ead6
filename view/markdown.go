package view

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in summaries is dropped: the renderer runs without WithUnsafe.
var summaryEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// RenderSummary turns the service's free-text summary into HTML. Plain
// prose comes out as a single paragraph.
func RenderSummary(text string) template.HTML {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := summaryEngine.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(text) + "</p>")
	}
	return template.HTML(buf.String())
}
