// ABOUTME: Text command parsing for platforms without native slash commands
// ABOUTME: Splits shell-style, walks the tree for the path, then binds flags and positionals

package command

import (
	"strings"
	"unicode"
)

type token struct {
	text   string
	quoted bool
}

// Parse splits a command line into a path and raw arguments for Resolve.
//
// Leading words are consumed while they name a child of the current group.
// The remaining words bind as "-name value", "--name value", "--name=value",
// or positionally in declaration order. When the last free argument is a
// string it takes every remaining word. A quoted word is never a flag, and
// "--" ends flag parsing.
func (t *Tree) Parse(line string) (string, map[string]string, error) {
	tokens := splitShell(line)
	if len(tokens) == 0 {
		return "", nil, &UnknownCommandError{Path: ""}
	}

	cur := t.root
	var cmd *Command
	i := 0
	for i < len(tokens) && cmd == nil {
		name := tokens[i].text
		if g := cur.group(name); g != nil {
			cur = g
		} else if c := cur.command(name); c != nil {
			cmd = c
		} else {
			return "", nil, &UnknownCommandError{Path: joinPath(cur.path, name)}
		}
		i++
	}
	if cmd == nil {
		return "", nil, &UnknownCommandError{Path: cur.path}
	}

	raw := make(map[string]string)
	var positional []string
	rest := tokens[i:]
	for j := 0; j < len(rest); j++ {
		tok := rest[j]
		if !tok.quoted && tok.text == "--" {
			for _, r := range rest[j+1:] {
				positional = append(positional, r.text)
			}
			break
		}
		name, value, hasValue, ok := splitFlag(tok)
		if !ok {
			positional = append(positional, tok.text)
			continue
		}
		if hasValue {
			raw[name] = value
			continue
		}
		if j+1 >= len(rest) {
			return "", nil, &ArgumentError{Name: name, Problem: ProblemNoValue}
		}
		raw[name] = rest[j+1].text
		j++
	}

	var free []Argument
	for _, a := range cmd.Args {
		if _, bound := raw[a.Name]; !bound {
			free = append(free, a)
		}
	}
	for k := 0; k < len(positional); k++ {
		if k >= len(free) {
			return "", nil, &ArgumentError{Got: positional[k], Problem: ProblemUnknown}
		}
		a := free[k]
		if k == len(free)-1 && a.Type == String {
			raw[a.Name] = strings.Join(positional[k:], " ")
			break
		}
		raw[a.Name] = positional[k]
	}

	return cmd.Path, raw, nil
}

func (b *branch) group(name string) *branch {
	for _, g := range b.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (b *branch) command(name string) *Command {
	for _, c := range b.commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// splitFlag recognizes -name, --name, -name=value and --name=value. Negative
// numbers are not flags.
func splitFlag(tok token) (name, value string, hasValue, ok bool) {
	if tok.quoted || len(tok.text) < 2 || tok.text[0] != '-' {
		return "", "", false, false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(tok.text, "-"), "-")
	if body == "" || unicode.IsDigit(rune(body[0])) || body[0] == '.' {
		return "", "", false, false
	}
	if n, v, found := strings.Cut(body, "="); found {
		return n, v, true, true
	}
	return body, "", false, true
}

// splitShell splits on whitespace, honoring single and double quotes and
// backslash escapes outside single quotes. An unterminated quote runs to the
// end of the line.
func splitShell(line string) []token {
	var (
		out     []token
		cur     strings.Builder
		inWord  bool
		quoted  bool
		quote   rune
		escaped bool
	)
	flush := func() {
		if inWord {
			out = append(out, token{text: cur.String(), quoted: quoted})
		}
		cur.Reset()
		inWord, quoted = false, false
	}

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord, quoted = true, true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return out
}
