// Package command implements the declarative command tree.
//
// Components describe their commands as Node values: groups that hold
// children and leaf commands that carry typed arguments and a handler. Build
// validates the declarations once at startup and returns an immutable Tree.
//
// The tree answers three questions at runtime:
//
//   - Flatten lists every invocable command as a dotted path ("mod.ban"),
//     lazily and in a stable depth-first order.
//   - Resolve maps a path plus raw string arguments to an Invocation with
//     values coerced to their declared types.
//   - Registration renders the schema a chat platform needs to show native
//     slash commands.
//
// Parse turns a text line ("mod ban @bob:example.org -reason spam") into the
// path and raw argument map Resolve expects, for platforms without native
// commands.
package command
