// ABOUTME: Renders reply messages into Matrix message content
// ABOUTME: Markdown bodies become org.matrix.custom.html via goldmark

package matrix

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-bot/internal/reply"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderHTML converts Markdown to HTML. A single paragraph is unwrapped so
// short replies don't carry block markup.
func renderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out, nil
}

// renderContent builds the message content for msg. Errors and ephemeral
// replies are sent as notices and, when the triggering event is known, as a
// reply to it.
func renderContent(msg *reply.Message, inReplyTo string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    msg.Text,
	}
	if msg.IsError || msg.Ephemeral {
		content.MsgType = event.MsgNotice
		if inReplyTo != "" {
			content.RelatesTo = (&event.RelatesTo{}).SetReplyTo(id.EventID(inReplyTo))
		}
	}

	formatted, err := renderHTML(msg.Text)
	if err == nil && formatted != "" && formatted != msg.Text {
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}
	return content
}
