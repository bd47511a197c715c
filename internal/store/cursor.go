package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Cursor returns the highest update id processed for botID, or 0.
func (s *Store) Cursor(ctx context.Context, botID string) (int64, error) {
	raw, ok, err := s.blobs.Get(ctx, cursorKey(botID))
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	if !ok {
		return 0, nil
	}
	var cursor int64
	if err := json.Unmarshal(raw, &cursor); err != nil {
		s.logger.Error("corrupt cursor, restarting from zero", "bot_id", botID, "error", err)
		return 0, nil
	}
	return cursor, nil
}

// SetCursor advances the cursor to updateID. It never moves the cursor
// backwards and reports whether it advanced.
func (s *Store) SetCursor(ctx context.Context, botID string, updateID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Cursor(ctx, botID)
	if err != nil {
		return false, err
	}
	if updateID <= current {
		return false, nil
	}
	if err := s.save(ctx, cursorKey(botID), updateID); err != nil {
		return false, err
	}
	return true, nil
}
