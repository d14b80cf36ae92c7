// ABOUTME: Human-readable help rendering for commands and the whole tree
// ABOUTME: Output is Markdown; platform adapters render it as they see fit

package command

import (
	"fmt"
	"strings"
)

// Usage returns a one-line synopsis such as "mod ban <user> [reason]".
func (c *Command) Usage() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(c.Path, ".", " "))
	for _, a := range c.Args {
		if a.Required {
			fmt.Fprintf(&b, " <%s>", a.Name)
		} else {
			fmt.Fprintf(&b, " [%s]", a.Name)
		}
	}
	return b.String()
}

// Help returns a Markdown block describing the command and its arguments.
func (c *Command) Help(prefix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s%s`", prefix, c.Usage())
	if c.Description != "" {
		fmt.Fprintf(&b, "\n%s", c.Description)
	}
	for _, a := range c.Args {
		fmt.Fprintf(&b, "\n- `%s` (%s", a.Name, a.Type)
		if !a.Required {
			b.WriteString(", optional")
		}
		b.WriteString(")")
		if a.Description != "" {
			fmt.Fprintf(&b, ": %s", a.Description)
		}
		if len(a.Choices) > 0 {
			fmt.Fprintf(&b, " one of %s", strings.Join(a.Choices, ", "))
		}
	}
	return b.String()
}

// Markdown lists every command with its synopsis and description.
func (t *Tree) Markdown(prefix string) string {
	var b strings.Builder
	for n := range t.Flatten() {
		fmt.Fprintf(&b, "- `%s%s`", prefix, n.Command.Usage())
		if n.Command.Description != "" {
			fmt.Fprintf(&b, " %s", n.Command.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
