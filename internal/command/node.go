// ABOUTME: Declarative command schema types: nodes, arguments and handlers
// ABOUTME: Components return these from Commands() and the tree is built once at startup

package command

import (
	"context"

	"github.com/2389/coven-bot/internal/reply"
)

// MaxDepth is the deepest a command path may go: group, subgroup, command.
const MaxDepth = 3

// Handler runs a resolved invocation and returns the reply to send, if any.
type Handler func(ctx context.Context, inv *Invocation) (*reply.Message, error)

// NodeKind distinguishes leaf commands from groups.
type NodeKind int

const (
	// KindCommand is an invocable leaf.
	KindCommand NodeKind = iota
	// KindGroup holds child nodes and cannot be invoked itself.
	KindGroup
)

// Node is one entry of a declared command tree.
type Node struct {
	Kind        NodeKind
	Name        string
	Description string

	// Children is used by groups only.
	Children []Node

	// Args and Handler are used by commands only.
	Args    []Argument
	Handler Handler
}

// Group declares a branch node.
func Group(name, description string, children ...Node) Node {
	return Node{
		Kind:        KindGroup,
		Name:        name,
		Description: description,
		Children:    children,
	}
}

// Leaf declares an invocable command.
func Leaf(name, description string, handler Handler, args ...Argument) Node {
	return Node{
		Kind:        KindCommand,
		Name:        name,
		Description: description,
		Args:        args,
		Handler:     handler,
	}
}

// Argument declares one typed parameter of a command.
type Argument struct {
	Name        string
	Type        ArgType
	Description string
	Required    bool
	// Choices restricts accepted values. Each choice must coerce to Type.
	Choices []string
}

// Arg declares an optional argument.
func Arg(name string, typ ArgType, description string) Argument {
	return Argument{Name: name, Type: typ, Description: description}
}

// RequiredArg declares a required argument.
func RequiredArg(name string, typ ArgType, description string) Argument {
	return Argument{Name: name, Type: typ, Description: description, Required: true}
}

// Command is a validated leaf as stored in a Tree.
type Command struct {
	// Path is the dotted path from the root, e.g. "mod.ban".
	Path        string
	Name        string
	Description string
	Args        []Argument
	Handler     Handler
}

// Arg returns the declared argument with the given name.
func (c *Command) Arg(name string) (Argument, bool) {
	for _, a := range c.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}
