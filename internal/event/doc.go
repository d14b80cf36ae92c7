// Package event defines inbound bot events and the dispatcher that delivers
// them to subscribed components.
//
// Delivery is isolated per listener: a listener that fails or panics is
// logged and counted, and the remaining listeners still run. Command events
// are resolved against the command tree first. A path or argument problem is
// answered to the user and the event goes no further; a resolved command runs
// its handler, sends its reply, then reaches command subscribers with the
// Invocation attached.
package event
