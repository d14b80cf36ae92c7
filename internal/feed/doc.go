// Package feed fans dispatched events out to live watchers, such as the
// status server's event stream. Slow watchers lose events rather than
// holding up the dispatcher.
package feed
