package utils

import (
	"bytes"
	stdhtml "html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// strict strips every tag; used for titles
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
	md     = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
)

func init() {
	ugc.RequireNoReferrerOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
}

// PlainText removes HTML tags from user input. The policy escapes what it keeps,
// so entities are decoded again to store the text as typed.
func PlainText(input string) string {
	return stdhtml.UnescapeString(strict.Sanitize(input))
}

// RenderMarkdown converts raw post text to HTML and sanitizes the result. This is the
// only place post text becomes HTML.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return ugc.Sanitize(source)
	}
	return string(ugc.SanitizeBytes(buf.Bytes()))
}
