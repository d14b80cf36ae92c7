// Package component provides the heterogeneous component registry.
//
// A component is any value with a Name. The registry holds at most one
// instance per concrete Go type, and components reach each other with the
// typed lookup Get[K]. Capabilities are discovered by interface: Commander
// contributes command subtrees, Starter and Closer take part in the lifecycle,
// and anything implementing event.Subscriber is wired into the dispatcher by
// the bot.
//
// Registration happens during startup. Seal freezes the registry; after that
// lookups take no locks.
package component
