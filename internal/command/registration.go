// ABOUTME: Renders the tree into the application-command payload chat platforms register
// ABOUTME: Option type numbers follow the Discord application command schema

package command

import "strconv"

// Option type numbers in registration payloads.
const (
	OptionSubCommand      = 1
	OptionSubCommandGroup = 2
	OptionString          = 3
	OptionInteger         = 4
	OptionBoolean         = 5
	OptionUser            = 6
	OptionChannel         = 7
	OptionRole            = 8
	OptionMentionable     = 9
	OptionNumber          = 10
)

const defaultDescription = "No description"

// AppCommand is one top-level registered command.
type AppCommand struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Options     []Option `json:"options,omitempty"`
}

// Option is a sub-command, sub-command group or typed parameter.
type Option struct {
	Type        int      `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// Choice is a fixed value offered for a parameter.
type Choice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Registration returns the registration payload for every root node, in Flatten
// order of the roots. The result is deterministic for a given tree.
func (t *Tree) Registration() []AppCommand {
	var out []AppCommand
	for _, g := range t.root.groups {
		out = append(out, AppCommand{
			Name:        g.name,
			Description: describe(g.description),
			Options:     groupOptions(g),
		})
	}
	for _, c := range t.root.commands {
		out = append(out, AppCommand{
			Name:        c.Name,
			Description: describe(c.Description),
			Options:     argOptions(c.Args),
		})
	}
	return out
}

func groupOptions(b *branch) []Option {
	var opts []Option
	for _, g := range b.groups {
		opts = append(opts, Option{
			Type:        OptionSubCommandGroup,
			Name:        g.name,
			Description: describe(g.description),
			Options:     groupOptions(g),
		})
	}
	for _, c := range b.commands {
		opts = append(opts, Option{
			Type:        OptionSubCommand,
			Name:        c.Name,
			Description: describe(c.Description),
			Options:     argOptions(c.Args),
		})
	}
	return opts
}

func argOptions(args []Argument) []Option {
	var opts []Option
	for _, a := range args {
		opt := Option{
			Type:        a.Type.OptionType(),
			Name:        a.Name,
			Description: describe(a.Description),
			Required:    a.Required,
		}
		for _, c := range a.Choices {
			opt.Choices = append(opt.Choices, Choice{Name: c, Value: choiceValue(a.Type, c)})
		}
		opts = append(opts, opt)
	}
	return opts
}

func choiceValue(t ArgType, c string) any {
	v, ok := Coerce(t, c)
	if !ok {
		return c
	}
	switch t {
	case Integer:
		return v.Int()
	case Number:
		return v.Float()
	case Boolean:
		return strconv.FormatBool(v.Bool())
	}
	return v.String()
}

func describe(s string) string {
	if s == "" {
		return defaultDescription
	}
	return s
}
