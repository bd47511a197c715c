package store

import (
	"context"
	"fmt"

	"botpanel/internal/domain"
)

// ListBots returns every registered bot in registration order.
func (s *Store) ListBots(ctx context.Context) ([]domain.Bot, error) {
	return loadList[domain.Bot](ctx, s, botsKey)
}

// GetBot returns the bot with id.
func (s *Store) GetBot(ctx context.Context, id string) (domain.Bot, error) {
	bots, err := s.ListBots(ctx)
	if err != nil {
		return domain.Bot{}, err
	}
	for _, b := range bots {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Bot{}, ErrBotNotFound
}

// SaveBot inserts bot or replaces the entry with the same id.
func (s *Store) SaveBot(ctx context.Context, bot domain.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bots, err := loadList[domain.Bot](ctx, s, botsKey)
	if err != nil {
		return err
	}
	replaced := false
	for i := range bots {
		if bots[i].ID == bot.ID {
			bots[i] = bot
			replaced = true
			break
		}
	}
	if !replaced {
		bots = append(bots, bot)
	}
	return s.save(ctx, botsKey, bots)
}

// RemoveBot drops the registry entry and every partition owned by the bot.
func (s *Store) RemoveBot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bots, err := loadList[domain.Bot](ctx, s, botsKey)
	if err != nil {
		return err
	}
	kept := bots[:0]
	for _, b := range bots {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(bots) {
		return ErrBotNotFound
	}
	if err := s.save(ctx, botsKey, kept); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, eventsKey(id), usersKey(id), cursorKey(id)); err != nil {
		return fmt.Errorf("drop bot partitions: %w", err)
	}
	return nil
}
