// ABOUTME: Misc component with small utility commands: ping, uptime and roll
// ABOUTME: Stateless apart from the start time

package builtins

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/timeparse"
)

// Misc provides ping, uptime and roll.
type Misc struct {
	started time.Time
	now     func() time.Time
	intN    func(n int64) int64
}

// NewMisc creates a Misc component.
func NewMisc() *Misc {
	return &Misc{
		started: time.Now(),
		now:     time.Now,
		intN:    rand.Int64N,
	}
}

// Name implements component.Component.
func (m *Misc) Name() string { return "misc" }

// Commands implements component.Commander.
func (m *Misc) Commands() []command.Node {
	return []command.Node{
		command.Leaf("ping", "Check that the bot is responding", m.ping),
		command.Leaf("uptime", "Show how long the bot has been running", m.uptime),
		command.Leaf("roll", "Roll a die", m.roll,
			command.Arg("sides", command.Integer, "number of sides, 2 to 1000 (default 6)"),
		),
	}
}

func (m *Misc) ping(context.Context, *command.Invocation) (*reply.Message, error) {
	return reply.Text("pong"), nil
}

func (m *Misc) uptime(context.Context, *command.Invocation) (*reply.Message, error) {
	return reply.Textf("Up for %s", timeparse.Format(m.now().Sub(m.started))), nil
}

func (m *Misc) roll(_ context.Context, inv *command.Invocation) (*reply.Message, error) {
	sides := inv.Int("sides", 6)
	if sides < 2 || sides > 1000 {
		return reply.Errorf("A die needs between 2 and 1000 sides, not %d.", sides), nil
	}
	return reply.Textf("🎲 %d (d%d)", m.intN(sides)+1, sides), nil
}
