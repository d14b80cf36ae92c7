// ABOUTME: Binds a named app_data document to a guarded cell
// ABOUTME: Every released write guard saves the value back as JSON

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/coven-bot/internal/guard"
)

// OpenCell loads the document called name into a guard.Cell, falling back to
// def when it does not exist yet. Releasing a write guard on the returned cell
// saves the value.
func OpenCell[T any](ctx context.Context, s DocumentStore, name string, def T, logger *slog.Logger) (*guard.Cell[T], error) {
	value := def
	doc, err := s.GetDocument(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("loading %s: %w", name, err)
	default:
		if err := json.Unmarshal(doc.Value, &value); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
	}

	save := func(ctx context.Context, v T) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		return s.PutDocument(ctx, name, data)
	}

	return guard.New(value,
		guard.WithOnWrite(save),
		guard.WithName[T](name),
		guard.WithLogger[T](logger),
	), nil
}
