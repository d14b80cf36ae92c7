// ABOUTME: Tests for reply rendering into Matrix content
// ABOUTME: Checks HTML formatting, notices for errors and reply relations

package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-bot/internal/reply"
)

func TestRenderContent_Plain(t *testing.T) {
	content := renderContent(reply.Text("pong"), "$trigger")
	assert.Equal(t, event.MsgText, content.MsgType)
	assert.Equal(t, "pong", content.Body)
	assert.Empty(t, content.Format)
	assert.Nil(t, content.RelatesTo)
}

func TestRenderContent_Markdown(t *testing.T) {
	content := renderContent(reply.Text("**motd**: be `nice`"), "")
	assert.Equal(t, event.FormatHTML, content.Format)
	assert.Equal(t, "<strong>motd</strong>: be <code>nice</code>", content.FormattedBody)
	assert.Equal(t, "**motd**: be `nice`", content.Body)
}

func TestRenderContent_List(t *testing.T) {
	content := renderContent(reply.Text("- `!ping` Check\n- `!roll [sides]` Roll"), "")
	assert.Contains(t, content.FormattedBody, "<ul>")
	assert.Contains(t, content.FormattedBody, "<code>!roll [sides]</code>")
}

func TestRenderContent_ErrorIsReplyNotice(t *testing.T) {
	content := renderContent(reply.Error("unknown command 'kick'"), "$trigger")
	assert.Equal(t, event.MsgNotice, content.MsgType)
	require.NotNil(t, content.RelatesTo)
	assert.Equal(t, id.EventID("$trigger"), content.RelatesTo.GetReplyTo())
}

func TestRenderHTML_KeepsMultipleParagraphs(t *testing.T) {
	out, err := renderHTML("one\n\ntwo")
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>\n<p>two</p>", out)
}
