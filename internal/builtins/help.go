// ABOUTME: Help component listing every registered command or describing one
// ABOUTME: Builds its view of the tree from the registry at startup

package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/reply"
)

// Help answers "help" and "help <command>".
type Help struct {
	prefix string
	tree   *command.Tree
}

// NewHelp creates a Help component. prefix is shown in front of commands.
func NewHelp(prefix string) *Help {
	return &Help{prefix: prefix}
}

// Name implements component.Component.
func (h *Help) Name() string { return "help" }

// Commands implements component.Commander.
func (h *Help) Commands() []command.Node {
	return []command.Node{
		command.Leaf("help", "List commands, or show how to use one", h.help,
			command.Arg("command", command.String, "command path, e.g. \"note set\""),
		),
	}
}

// Start builds the tree from every Commander in the registry.
func (h *Help) Start(_ context.Context, r *component.Registry) error {
	tree, err := command.Build(r.CommandNodes()...)
	if err != nil {
		return fmt.Errorf("building help tree: %w", err)
	}
	h.tree = tree
	return nil
}

func (h *Help) help(_ context.Context, inv *command.Invocation) (*reply.Message, error) {
	if h.tree == nil {
		return nil, fmt.Errorf("help used before start")
	}

	query := strings.TrimSpace(inv.String("command"))
	if query == "" {
		return reply.Text("**Commands**\n" + h.tree.Markdown(h.prefix)), nil
	}

	path := strings.Join(strings.Fields(strings.TrimPrefix(query, h.prefix)), ".")
	if cmd, ok := h.tree.Lookup(path); ok {
		return reply.Text(cmd.Help(h.prefix)), nil
	}

	// A group: list what is under it
	var lines []string
	for n := range h.tree.Flatten() {
		if strings.HasPrefix(n.Path, path+".") {
			lines = append(lines, fmt.Sprintf("- `%s%s` %s", h.prefix, n.Command.Usage(), n.Command.Description))
		}
	}
	if len(lines) == 0 {
		return reply.Errorf("No command called `%s`.", query), nil
	}
	return reply.Text(strings.Join(lines, "\n")), nil
}
