// ABOUTME: Storage interfaces and record types shared by the SQLite and mock stores
// ABOUTME: Covers named application documents and the command log

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Document is one named JSON value in app_data.
type Document struct {
	Name      string
	Value     []byte
	UpdatedAt time.Time
}

// CommandRecord is one executed command.
type CommandRecord struct {
	ID        string
	Path      string
	Platform  string
	ChannelID string
	SenderID  string
	OK        bool
	Timestamp time.Time
}

// CommandFilter narrows ListCommands.
type CommandFilter struct {
	ChannelID string
	Since     time.Time
	// Limit defaults to 20 and is capped at 500.
	Limit int
}

// DocumentStore reads and writes named documents.
type DocumentStore interface {
	GetDocument(ctx context.Context, name string) (*Document, error)
	PutDocument(ctx context.Context, name string, value []byte) error
	DeleteDocument(ctx context.Context, name string) error
	ListDocuments(ctx context.Context) ([]string, error)
}

// CommandLog records command invocations.
type CommandLog interface {
	AppendCommand(ctx context.Context, rec *CommandRecord) error
	ListCommands(ctx context.Context, filter CommandFilter) ([]*CommandRecord, error)
}

// Store is everything the bot persists.
type Store interface {
	DocumentStore
	CommandLog
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 500)
}
