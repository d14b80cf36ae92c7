// Package dedupe drops events the gateway delivers more than once.
package dedupe
