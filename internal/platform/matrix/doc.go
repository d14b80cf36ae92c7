// Package matrix connects the bot to a Matrix homeserver.
//
// A Bridge logs in, syncs, and turns room messages and membership changes
// into event.Event values. Messages that start with the command prefix become
// command events whose Text is the command line. A Replier sends replies back
// as HTML rendered from Markdown.
//
// End-to-end encryption is optional and needs a crypto database path.
package matrix
