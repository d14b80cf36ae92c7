// ABOUTME: Access component holding the bot owners list
// ABOUTME: Other components look it up to gate privileged actions

package builtins

import "slices"

// Access knows which senders own the bot.
type Access struct {
	owners []string
}

// NewAccess creates an Access component.
func NewAccess(owners []string) *Access {
	return &Access{owners: slices.Clone(owners)}
}

// Name implements component.Component.
func (a *Access) Name() string { return "access" }

// IsOwner reports whether senderID is a bot owner.
func (a *Access) IsOwner(senderID string) bool {
	return slices.Contains(a.owners, senderID)
}

// Owners returns the configured owners.
func (a *Access) Owners() []string {
	return slices.Clone(a.owners)
}
