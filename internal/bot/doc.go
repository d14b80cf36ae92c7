// Package bot wires configuration, storage, components and a platform into a
// running bot.
//
// New builds everything and fails on schema or startup errors. Run moves
// events from the platform through the dispatcher until the context ends,
// and serves a small status API when an HTTP address is configured:
//
//	GET /health          liveness
//	GET /health/ready    200 once the platform reported ready
//	GET /api/commands    the last published registration payload
//	GET /api/events      server-sent events for dispatched events; ?channel= filters
package bot
