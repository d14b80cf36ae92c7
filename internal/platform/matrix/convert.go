// ABOUTME: Converts mautrix events into bot events
// ABOUTME: Pure functions so the sync handlers stay thin and testable

package matrix

import (
	"strings"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	botevent "github.com/2389/coven-bot/internal/event"
)

// Platform is the platform name set on every event from this package.
const Platform = "matrix"

// convertMessage turns a room message into a message or command event. It
// returns nil for our own messages, edits and anything but plain text.
func convertMessage(evt *event.Event, self id.UserID, prefix string) *botevent.Event {
	if evt.Sender == self {
		return nil
	}
	content := evt.Content.AsMessage()
	// Notices are bot output; answering them loops.
	if content.MsgType != event.MsgText {
		return nil
	}
	if content.NewContent != nil || content.RelatesTo.GetReplaceID() != "" {
		return nil
	}

	out := base(evt)
	body := strings.TrimSpace(content.Body)
	if prefix != "" && strings.HasPrefix(body, prefix) {
		line := strings.TrimSpace(strings.TrimPrefix(body, prefix))
		if line == "" {
			return nil
		}
		out.Kind = botevent.KindCommand
		out.Text = line
		return out
	}

	out.Kind = botevent.KindMessage
	out.Text = content.Body
	return out
}

// convertMember turns a membership change into a join or leave event. The
// subject of the change is the state key, not the sender. Profile updates
// that keep the membership unchanged return nil.
func convertMember(evt *event.Event, self id.UserID) *botevent.Event {
	subject := id.UserID(evt.GetStateKey())
	if subject == "" || subject == self {
		return nil
	}
	m := evt.Content.AsMember()

	var prev event.Membership
	if evt.Unsigned.PrevContent != nil {
		if pm, ok := evt.Unsigned.PrevContent.Parsed.(*event.MemberEventContent); ok {
			prev = pm.Membership
		}
	}
	if prev == m.Membership {
		return nil
	}

	out := base(evt)
	out.SenderID = subject.String()
	switch m.Membership {
	case event.MembershipJoin:
		out.Kind = botevent.KindMemberJoin
	case event.MembershipLeave, event.MembershipBan:
		if prev != event.MembershipJoin {
			return nil
		}
		out.Kind = botevent.KindMemberLeave
	default:
		return nil
	}
	return out
}

func base(evt *event.Event) *botevent.Event {
	out := &botevent.Event{
		ID:        evt.ID.String(),
		Platform:  Platform,
		ChannelID: evt.RoomID.String(),
		SenderID:  evt.Sender.String(),
		Payload:   evt,
	}
	if evt.Timestamp > 0 {
		out.Time = time.UnixMilli(evt.Timestamp)
	}
	return out
}
