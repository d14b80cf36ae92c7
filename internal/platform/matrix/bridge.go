// ABOUTME: Matrix bridge core: login, sync, and routing room events to the bot
// ABOUTME: Events are pushed onto the dispatcher's channel; replies go through Reply

package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-bot/internal/config"
	botevent "github.com/2389/coven-bot/internal/event"
)

// typingTimeout is how long the typing indicator shows unless cleared.
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for small Matrix API calls.
const networkTimeout = 10 * time.Second

// Bridge connects a Matrix account to the bot.
type Bridge struct {
	cfg    config.MatrixConfig
	prefix string
	typing bool
	client *mautrix.Client
	crypto *CryptoManager
	logger *slog.Logger

	// allowed holds resolved room ids; empty allows every room.
	allowed []id.RoomID
	started time.Time
	ready   sync.Once
	out     chan<- *botevent.Event
}

// NewBridge creates a bridge for cfg. prefix marks command messages.
func NewBridge(cfg config.MatrixConfig, prefix string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &Bridge{
		cfg:    cfg,
		prefix: prefix,
		typing: cfg.Typing(),
		client: client,
		logger: logger.With("component", "matrix"),
	}, nil
}

// UserID returns the account the bridge is logged in as.
func (b *Bridge) UserID() id.UserID {
	return b.client.UserID
}

// Login authenticates with a password when no access token is configured,
// otherwise checks the token with whoami. It then sets up encryption when a
// crypto database is configured and resolves allowed room aliases.
func (b *Bridge) Login(ctx context.Context) error {
	if b.cfg.AccessToken == "" {
		resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
			Type: mautrix.AuthTypePassword,
			Identifier: mautrix.UserIdentifier{
				Type: mautrix.IdentifierTypeUser,
				User: b.cfg.Username,
			},
			Password:                 b.cfg.Password,
			InitialDeviceDisplayName: "coven-bot",
			StoreCredentials:         true,
		})
		if err != nil {
			return fmt.Errorf("password login: %w", err)
		}
		b.logger.Info("logged in", "user_id", resp.UserID.String(), "device_id", resp.DeviceID.String())
	} else {
		resp, err := b.client.Whoami(ctx)
		if err != nil {
			return fmt.Errorf("checking access token: %w", err)
		}
		b.client.UserID = resp.UserID
		b.client.DeviceID = resp.DeviceID
		b.logger.Info("using access token", "user_id", resp.UserID.String(), "device_id", resp.DeviceID.String())
	}

	if b.cfg.CryptoDatabase != "" {
		cm, err := SetupCrypto(ctx, b.client, b.cfg.RecoveryKey, b.cfg.CryptoDatabase, b.logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		b.crypto = cm
	} else {
		b.logger.Info("encryption disabled (no crypto database)")
	}

	return b.resolveAllowedRooms(ctx)
}

func (b *Bridge) resolveAllowedRooms(ctx context.Context) error {
	b.allowed = b.allowed[:0]
	for _, room := range b.cfg.AllowedRooms {
		if room[0] == '!' {
			b.allowed = append(b.allowed, id.RoomID(room))
			continue
		}
		resp, err := b.client.ResolveAlias(ctx, id.RoomAlias(room))
		if err != nil {
			return fmt.Errorf("resolving room alias %s: %w", room, err)
		}
		b.allowed = append(b.allowed, resp.RoomID)
	}
	return nil
}

// Run syncs until ctx is cancelled, sending converted events to out. The
// first completed sync produces a ready event.
func (b *Bridge) Run(ctx context.Context, out chan<- *botevent.Event) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.cfg.Homeserver,
		"user_id", b.client.UserID.String(),
		"allowed_rooms", len(b.allowed),
	)
	b.out = out
	b.started = time.Now()

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessage)
	syncer.OnEventType(event.StateMember, b.handleMember)
	syncer.OnSync(func(ctx context.Context, _ *mautrix.RespSync, _ string) bool {
		b.ready.Do(func() {
			b.emit(ctx, &botevent.Event{Kind: botevent.KindReady, Platform: Platform, Time: time.Now()})
		})
		return true
	})

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.client.StopSync()
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// Close releases encryption resources.
func (b *Bridge) Close() error {
	if b.crypto != nil {
		return b.crypto.Close()
	}
	return nil
}

func (b *Bridge) handleMessage(ctx context.Context, evt *event.Event) {
	if !b.fresh(evt) || !b.isRoomAllowed(evt.RoomID) {
		return
	}
	out := convertMessage(evt, b.client.UserID, b.prefix)
	if out == nil {
		return
	}
	b.logger.Debug("received message",
		"room", out.ChannelID,
		"sender", out.SenderID,
		"kind", out.Kind,
		"content", truncate(out.Text, 50),
	)
	if out.Kind == botevent.KindCommand && b.typing {
		b.setTyping(evt.RoomID, true)
	}
	b.emit(ctx, out)
}

func (b *Bridge) handleMember(ctx context.Context, evt *event.Event) {
	if !b.isRoomAllowed(evt.RoomID) {
		return
	}
	if b.invitedSelf(evt) {
		b.join(ctx, evt.RoomID)
		return
	}
	if !b.fresh(evt) {
		return
	}
	if out := convertMember(evt, b.client.UserID); out != nil {
		b.emit(ctx, out)
	}
}

func (b *Bridge) invitedSelf(evt *event.Event) bool {
	return id.UserID(evt.GetStateKey()) == b.client.UserID &&
		evt.Content.AsMember().Membership == event.MembershipInvite
}

func (b *Bridge) join(ctx context.Context, roomID id.RoomID) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := b.client.JoinRoomByID(ctx, roomID); err != nil {
		b.logger.Warn("failed to accept invite", "room", roomID.String(), "error", err)
		return
	}
	b.logger.Info("joined room", "room", roomID.String())
}

// fresh drops backlog delivered by the initial sync.
func (b *Bridge) fresh(evt *event.Event) bool {
	return evt.Timestamp == 0 || evt.Timestamp >= b.started.UnixMilli()
}

func (b *Bridge) emit(ctx context.Context, evt *botevent.Event) {
	select {
	case b.out <- evt:
	case <-ctx.Done():
	}
}

// isRoomAllowed checks if the room is in the allowed list.
func (b *Bridge) isRoomAllowed(roomID id.RoomID) bool {
	if len(b.cfg.AllowedRooms) == 0 {
		return true
	}
	return slices.Contains(b.allowed, roomID)
}

// setTyping sends typing indicator to room.
func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.client.UserTyping(ctx, roomID, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID.String(), "error", err)
	}
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
