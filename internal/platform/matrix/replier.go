// ABOUTME: Replier implementation that posts replies into Matrix rooms
// ABOUTME: Clears the typing indicator the bridge set while the command ran

package matrix

import (
	"context"
	"fmt"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-bot/internal/reply"
)

// sendTimeout bounds a single send; messages can be large.
const sendTimeout = 30 * time.Second

// Reply implements reply.Replier.
func (b *Bridge) Reply(ctx context.Context, target reply.Target, msg *reply.Message) error {
	if target.Platform != "" && target.Platform != Platform {
		return fmt.Errorf("matrix replier cannot send to platform %q", target.Platform)
	}
	roomID := id.RoomID(target.ChannelID)
	if b.typing {
		defer b.setTyping(roomID, false)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	content := renderContent(msg, target.EventID)
	if _, err := b.client.SendMessageEvent(ctx, roomID, event.EventMessage, content); err != nil {
		return fmt.Errorf("sending to %s: %w", roomID, err)
	}

	b.logger.Debug("reply sent", "room", roomID.String(), "length", len(msg.Text), "error_reply", msg.IsError)
	return nil
}

var _ reply.Replier = (*Bridge)(nil)
