// ABOUTME: Stats component counting room activity and logging executed commands
// ABOUTME: Counters live in a reader/writer guarded cell; the command log goes to the store

package builtins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/event"
	"github.com/2389/coven-bot/internal/guard"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
)

// RoomStats is the activity tally for one room.
type RoomStats struct {
	Messages   int
	Commands   int
	Joins      int
	LastActive time.Time
}

// Stats counts messages, joins and commands per room.
type Stats struct {
	rooms  *guard.Cell[map[string]RoomStats]
	log    store.CommandLog
	logger *slog.Logger
}

var _ event.Subscriber = (*Stats)(nil)

// NewStats creates a Stats component. log may be nil to skip the command log.
func NewStats(log store.CommandLog, logger *slog.Logger) *Stats {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stats{
		rooms:  guard.New(map[string]RoomStats{}, guard.WithName[map[string]RoomStats]("stats")),
		log:    log,
		logger: logger.With("component", "stats"),
	}
}

// Name implements component.Component.
func (s *Stats) Name() string { return "stats" }

// Subscriptions implements event.Subscriber.
func (s *Stats) Subscriptions() []event.Kind {
	return []event.Kind{event.KindMessage, event.KindCommand, event.KindMemberJoin}
}

// HandleEvent implements event.Listener.
func (s *Stats) HandleEvent(ctx context.Context, evt *event.Event) error {
	err := s.rooms.Update(ctx, func(rooms *map[string]RoomStats) error {
		rs := (*rooms)[evt.ChannelID]
		switch evt.Kind {
		case event.KindMessage:
			rs.Messages++
		case event.KindCommand:
			rs.Commands++
		case event.KindMemberJoin:
			rs.Joins++
		}
		rs.LastActive = evt.Time
		(*rooms)[evt.ChannelID] = rs
		return nil
	})
	if err != nil {
		return err
	}

	if evt.Kind != event.KindCommand || evt.Invocation == nil || s.log == nil {
		return nil
	}
	rec := &store.CommandRecord{
		Path:      evt.Invocation.Path,
		Platform:  evt.Platform,
		ChannelID: evt.ChannelID,
		SenderID:  evt.SenderID,
		OK:        evt.HandlerErr == nil,
		Timestamp: evt.Time,
	}
	if err := s.log.AppendCommand(ctx, rec); err != nil {
		return fmt.Errorf("recording command: %w", err)
	}
	return nil
}

// Room returns the tally for one room.
func (s *Stats) Room(ctx context.Context, room string) (RoomStats, error) {
	var out RoomStats
	err := s.rooms.View(ctx, func(rooms map[string]RoomStats) error {
		out = rooms[room]
		return nil
	})
	return out, err
}

// Commands implements component.Commander.
func (s *Stats) Commands() []command.Node {
	return []command.Node{
		command.Group("stats", "Activity statistics",
			command.Leaf("show", "Show activity in this room and overall", s.show),
			command.Leaf("recent", "Show recent commands in this room", s.recent,
				command.Arg("limit", command.Integer, "how many, default 10"),
			),
		),
	}
}

func (s *Stats) show(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	var here, total RoomStats
	err := s.rooms.View(ctx, func(rooms map[string]RoomStats) error {
		here = rooms[inv.Source.ChannelID]
		for _, rs := range rooms {
			total.Messages += rs.Messages
			total.Commands += rs.Commands
			total.Joins += rs.Joins
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply.Textf("**This room**: %d messages, %d commands, %d joins\n**All rooms**: %d messages, %d commands, %d joins",
		here.Messages, here.Commands, here.Joins,
		total.Messages, total.Commands, total.Joins), nil
}

func (s *Stats) recent(ctx context.Context, inv *command.Invocation) (*reply.Message, error) {
	if s.log == nil {
		return reply.Error("Command history is not recorded."), nil
	}
	recs, err := s.log.ListCommands(ctx, store.CommandFilter{
		ChannelID: inv.Source.ChannelID,
		Limit:     int(inv.Int("limit", 10)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing commands: %w", err)
	}
	if len(recs) == 0 {
		return reply.Text("No commands recorded in this room."), nil
	}

	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		status := "ok"
		if !rec.OK {
			status = "failed"
		}
		lines = append(lines, fmt.Sprintf("- %s `%s` by %s (%s)",
			rec.Timestamp.Format("2006-01-02 15:04"), strings.ReplaceAll(rec.Path, ".", " "), rec.SenderID, status))
	}
	return reply.Text(strings.Join(lines, "\n")), nil
}
