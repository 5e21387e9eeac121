package advisor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	markdown = goldmark.New()
	policy   = bluemonday.UGCPolicy()
)

// Render converts model Markdown into sanitized HTML
func Render(op Op, text, source string) (*Advice, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Kind: KindUpstream, Op: op, Message: "empty analysis"}
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return nil, fmt.Errorf("failed to render analysis: %w", err)
	}

	return &Advice{
		Op:       op,
		Markdown: text,
		HTML:     policy.Sanitize(buf.String()),
		Source:   source,
	}, nil
}
