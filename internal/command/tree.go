// ABOUTME: Validated, immutable command tree built from declared nodes
// ABOUTME: Provides lazy depth-first flattening and exact path lookup

package command

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
)

// FlatNode is one invocable command with its full dotted path.
type FlatNode struct {
	Path    string
	Command *Command
}

// branch is a validated group. The root is a branch with an empty name.
type branch struct {
	name        string
	description string
	path        string
	groups      []*branch
	commands    []*Command
}

// Tree is an immutable, validated command tree.
type Tree struct {
	root     *branch
	commands map[string]*Command
	groups   map[string]*branch
}

// Build validates nodes and returns a Tree. All roots share one namespace.
func Build(nodes ...Node) (*Tree, error) {
	t := &Tree{
		root:     &branch{},
		commands: make(map[string]*Command),
		groups:   make(map[string]*branch),
	}
	if err := t.addChildren(t.root, nodes, 1); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) addChildren(parent *branch, nodes []Node, depth int) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		path := joinPath(parent.path, n.Name)
		if err := validateName(n.Name); err != nil {
			return &SchemaError{Path: path, Reason: err.Error()}
		}
		if seen[n.Name] {
			return &SchemaError{Path: path, Reason: "duplicate sibling name"}
		}
		seen[n.Name] = true

		switch n.Kind {
		case KindGroup:
			if depth >= MaxDepth {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("groups may not nest deeper than %d levels", MaxDepth)}
			}
			if len(n.Children) == 0 {
				return &SchemaError{Path: path, Reason: "group has no children"}
			}
			if len(n.Args) > 0 || n.Handler != nil {
				return &SchemaError{Path: path, Reason: "group cannot declare arguments or a handler"}
			}
			b := &branch{name: n.Name, description: n.Description, path: path}
			if err := t.addChildren(b, n.Children, depth+1); err != nil {
				return err
			}
			parent.groups = append(parent.groups, b)
			t.groups[path] = b

		case KindCommand:
			if len(n.Children) > 0 {
				return &SchemaError{Path: path, Reason: "command cannot have children"}
			}
			if err := validateArgs(path, n.Args); err != nil {
				return err
			}
			cmd := &Command{
				Path:        path,
				Name:        n.Name,
				Description: n.Description,
				Args:        append([]Argument(nil), n.Args...),
				Handler:     n.Handler,
			}
			parent.commands = append(parent.commands, cmd)
			t.commands[path] = cmd

		default:
			return &SchemaError{Path: path, Reason: fmt.Sprintf("unknown node kind %d", n.Kind)}
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	for _, r := range name {
		if r == '.' || unicode.IsSpace(r) {
			return fmt.Errorf("name '%s' contains '.' or whitespace", name)
		}
	}
	return nil
}

func validateArgs(path string, args []Argument) error {
	seen := make(map[string]bool, len(args))
	optionalSeen := false
	for _, a := range args {
		argPath := path + ":" + a.Name
		if err := validateName(a.Name); err != nil {
			return &SchemaError{Path: argPath, Reason: err.Error()}
		}
		if strings.HasPrefix(a.Name, "-") {
			return &SchemaError{Path: argPath, Reason: "argument name cannot start with '-'"}
		}
		if seen[a.Name] {
			return &SchemaError{Path: argPath, Reason: "duplicate argument name"}
		}
		seen[a.Name] = true
		if _, ok := argTypeNames[a.Type]; !ok {
			return &SchemaError{Path: argPath, Reason: fmt.Sprintf("unknown argument type %d", int(a.Type))}
		}
		if a.Required && optionalSeen {
			return &SchemaError{Path: argPath, Reason: "required argument follows an optional one"}
		}
		if !a.Required {
			optionalSeen = true
		}
		for _, c := range a.Choices {
			if _, ok := Coerce(a.Type, c); !ok {
				return &SchemaError{Path: argPath, Reason: fmt.Sprintf("choice '%s' is not a valid %s", c, a.Type)}
			}
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// Flatten returns a lazy depth-first walk over every invocable command.
// Within a level, groups are visited before commands, each in declaration
// order. Each range over the result walks the tree again.
func (t *Tree) Flatten() iter.Seq[FlatNode] {
	return func(yield func(FlatNode) bool) {
		walk(t.root, yield)
	}
}

func walk(b *branch, yield func(FlatNode) bool) bool {
	for _, g := range b.groups {
		if !walk(g, yield) {
			return false
		}
	}
	for _, c := range b.commands {
		if !yield(FlatNode{Path: c.Path, Command: c}) {
			return false
		}
	}
	return true
}

// Paths returns every invocable path in Flatten order.
func (t *Tree) Paths() []string {
	var out []string
	for n := range t.Flatten() {
		out = append(out, n.Path)
	}
	return out
}

// Len returns the number of invocable commands.
func (t *Tree) Len() int {
	return len(t.commands)
}

// Lookup returns the command at path.
func (t *Tree) Lookup(path string) (*Command, bool) {
	c, ok := t.commands[path]
	return c, ok
}

// Resolve matches path exactly against the tree and coerces raw arguments to
// their declared types.
func (t *Tree) Resolve(path string, raw map[string]string) (*Invocation, error) {
	cmd, ok := t.commands[path]
	if !ok {
		return nil, &UnknownCommandError{Path: path}
	}

	for name := range raw {
		if _, ok := cmd.Arg(name); !ok {
			return nil, &ArgumentError{Name: name, Got: raw[name], Problem: ProblemUnknown}
		}
	}

	args := make(map[string]Value, len(cmd.Args))
	for _, a := range cmd.Args {
		s, ok := raw[a.Name]
		if !ok {
			if a.Required {
				return nil, &ArgumentError{Name: a.Name, Expected: a.Type.String(), Problem: ProblemMissing}
			}
			continue
		}
		v, ok := Coerce(a.Type, s)
		if !ok {
			return nil, &ArgumentError{Name: a.Name, Expected: a.Type.String(), Got: s, Problem: ProblemType}
		}
		if len(a.Choices) > 0 && !matchesChoice(a, v) {
			return nil, &ArgumentError{
				Name:     a.Name,
				Expected: "[" + strings.Join(a.Choices, ", ") + "]",
				Got:      s,
				Problem:  ProblemChoice,
			}
		}
		args[a.Name] = v
	}

	return &Invocation{Path: path, Command: cmd, Args: args}, nil
}

func matchesChoice(a Argument, v Value) bool {
	for _, c := range a.Choices {
		cv, _ := Coerce(a.Type, c)
		if cv.equal(v) {
			return true
		}
	}
	return false
}
