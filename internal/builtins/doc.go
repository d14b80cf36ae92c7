// Package builtins provides the stock bot components.
//
// # Components
//
//   - Access: bot owners, consulted by other components through the registry
//   - Help: "help [command]" from the live command tree
//   - Misc: "ping", "uptime", "roll [sides]"
//   - Notes: "note set|get|list|delete", per-room notes persisted in app_data
//   - Reminders: "remind add|list|cancel", delayed jobs on a task.Manager
//   - Stats: counts messages, joins and commands; "stats show|recent"
//   - Registrar: publishes the command registration payload when the bot is ready
//
// Components reach each other only through component.Get on the registry
// passed to Start.
package builtins
