// Package reply defines what handlers send back and who delivers it.
package reply
