// ABOUTME: Invocation is a resolved command with typed arguments and its origin
// ABOUTME: Handlers read arguments through the typed accessors

package command

// Source describes where an invocation came from. The dispatcher fills it in.
type Source struct {
	Platform  string
	ChannelID string
	SenderID  string
	EventID   string
}

// Invocation is a command path matched against the tree with coerced
// arguments.
type Invocation struct {
	Path    string
	Command *Command
	Args    map[string]Value
	Source  Source
}

// Value returns the bound value for name.
func (inv *Invocation) Value(name string) (Value, bool) {
	v, ok := inv.Args[name]
	return v, ok
}

// Has reports whether name was supplied.
func (inv *Invocation) Has(name string) bool {
	_, ok := inv.Args[name]
	return ok
}

// String returns a string argument, or "" when absent.
func (inv *Invocation) String(name string) string {
	return inv.Args[name].String()
}

// Int returns an integer argument, or def when absent.
func (inv *Invocation) Int(name string, def int64) int64 {
	if v, ok := inv.Args[name]; ok {
		return v.Int()
	}
	return def
}

// Bool returns a boolean argument, or def when absent.
func (inv *Invocation) Bool(name string, def bool) bool {
	if v, ok := inv.Args[name]; ok {
		return v.Bool()
	}
	return def
}

// Float returns a number argument, or def when absent.
func (inv *Invocation) Float(name string, def float64) float64 {
	if v, ok := inv.Args[name]; ok {
		return v.Float()
	}
	return def
}

// ID returns a user, channel, role or mentionable argument, or "" when absent.
func (inv *Invocation) ID(name string) string {
	v, ok := inv.Args[name]
	if !ok || !v.Type.IsID() {
		return ""
	}
	return v.String()
}
