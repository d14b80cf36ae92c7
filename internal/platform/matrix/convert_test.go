// ABOUTME: Tests for mautrix to bot event conversion
// ABOUTME: Covers prefix handling, self and edit filtering, and membership transitions

package matrix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	botevent "github.com/2389/coven-bot/internal/event"
)

const self = id.UserID("@bot:example.org")

func textEvent(sender id.UserID, body string) *event.Event {
	return &event.Event{
		ID:        "$evt1",
		RoomID:    "!room:example.org",
		Sender:    sender,
		Type:      event.EventMessage,
		Timestamp: 1_700_000_000_000,
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    body,
		}},
	}
}

func TestConvertMessage(t *testing.T) {
	t.Run("command", func(t *testing.T) {
		out := convertMessage(textEvent("@alice:example.org", "!mod ban @bob:example.org spam"), self, "!")
		require.NotNil(t, out)
		assert.Equal(t, botevent.KindCommand, out.Kind)
		assert.Equal(t, "mod ban @bob:example.org spam", out.Text)
		assert.Equal(t, "$evt1", out.ID)
		assert.Equal(t, Platform, out.Platform)
		assert.Equal(t, "!room:example.org", out.ChannelID)
		assert.Equal(t, "@alice:example.org", out.SenderID)
		assert.Equal(t, time.UnixMilli(1_700_000_000_000), out.Time)
		assert.Nil(t, out.Command)
	})

	t.Run("plain message", func(t *testing.T) {
		out := convertMessage(textEvent("@alice:example.org", "hello there"), self, "!")
		require.NotNil(t, out)
		assert.Equal(t, botevent.KindMessage, out.Kind)
		assert.Equal(t, "hello there", out.Text)
	})

	t.Run("prefix only", func(t *testing.T) {
		assert.Nil(t, convertMessage(textEvent("@alice:example.org", "!  "), self, "!"))
	})

	t.Run("own message", func(t *testing.T) {
		assert.Nil(t, convertMessage(textEvent(self, "!ping"), self, "!"))
	})

	t.Run("notice", func(t *testing.T) {
		evt := textEvent("@other-bot:example.org", "!ping")
		evt.Content.Parsed.(*event.MessageEventContent).MsgType = event.MsgNotice
		assert.Nil(t, convertMessage(evt, self, "!"))
	})

	t.Run("edit", func(t *testing.T) {
		evt := textEvent("@alice:example.org", "* !ping")
		content := evt.Content.Parsed.(*event.MessageEventContent)
		content.RelatesTo = (&event.RelatesTo{}).SetReplace("$original")
		assert.Nil(t, convertMessage(evt, self, "!"))
	})
}

func memberEvent(subject string, membership, prev event.Membership) *event.Event {
	evt := &event.Event{
		ID:       "$member",
		RoomID:   "!room:example.org",
		Sender:   id.UserID(subject),
		Type:     event.StateMember,
		StateKey: &subject,
		Content:  event.Content{Parsed: &event.MemberEventContent{Membership: membership}},
	}
	if prev != "" {
		evt.Unsigned.PrevContent = &event.Content{Parsed: &event.MemberEventContent{Membership: prev}}
	}
	return evt
}

func TestConvertMember(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		membership event.Membership
		prev       event.Membership
		want       botevent.Kind
	}{
		{"join", "@alice:example.org", event.MembershipJoin, "", botevent.KindMemberJoin},
		{"join after invite", "@alice:example.org", event.MembershipJoin, event.MembershipInvite, botevent.KindMemberJoin},
		{"leave", "@alice:example.org", event.MembershipLeave, event.MembershipJoin, botevent.KindMemberLeave},
		{"kicked", "@alice:example.org", event.MembershipBan, event.MembershipJoin, botevent.KindMemberLeave},
		{"invite rejected", "@alice:example.org", event.MembershipLeave, event.MembershipInvite, ""},
		{"profile change", "@alice:example.org", event.MembershipJoin, event.MembershipJoin, ""},
		{"invite", "@alice:example.org", event.MembershipInvite, "", ""},
		{"self", string(self), event.MembershipJoin, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := convertMember(memberEvent(tt.subject, tt.membership, tt.prev), self)
			if tt.want == "" {
				assert.Nil(t, out)
				return
			}
			require.NotNil(t, out)
			assert.Equal(t, tt.want, out.Kind)
			assert.Equal(t, tt.subject, out.SenderID)
			assert.Equal(t, "!room:example.org", out.ChannelID)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "é...", truncate("éèê", 1))
}
