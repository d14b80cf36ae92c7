// Package task runs background work and tracks it by id.
//
// A Manager owns an arena of tasks keyed by monotonically increasing IDs.
// Each task carries its input data D, the latest progress value P reported by
// the work function, and on completion a result R or an error. States move
// Pending → Running → Completed, Failed or Cancelled and never back.
//
// Spawn starts work immediately; SpawnAt holds it Pending until a start time,
// which is how delayed jobs such as reminders are scheduled. Cancellation is
// cooperative: the work function's context is cancelled and the task becomes
// Cancelled only if the work returns a cancellation error.
//
// Finished tasks stay queryable for the retention period and are then reaped
// by a background sweeper, or lazily when looked up. IDs are never reused.
//
// With WithRegistry the manager saves its Pending tasks and the last issued
// id whenever they change. Restore reads them back after a restart and
// schedules each task again under its old id.
package task
