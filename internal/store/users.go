package store

import (
	"context"

	"botpanel/internal/domain"
)

// UpsertUser merges patch into the stored user, creating it when absent.
// LastSeen is always set to now; FirstSeen only on creation.
func (s *Store) UpsertUser(ctx context.Context, botID string, patch domain.UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := loadList[domain.User](ctx, s, usersKey(botID))
	if err != nil {
		return domain.User{}, err
	}
	now := s.now().UTC()

	idx := indexOfUser(users, patch.ID)
	created := idx < 0
	if created {
		users = append(users, domain.User{ID: patch.ID, FirstSeen: now})
		idx = len(users) - 1
	}
	patch.Apply(&users[idx], created)
	users[idx].LastSeen = now

	if err := s.save(ctx, usersKey(botID), users); err != nil {
		s.logger.Error("failed saving user", "bot_id", botID, "user_id", patch.ID, "error", err)
		return domain.User{}, err
	}
	return users[idx], nil
}

// UpdateUser applies fn to an existing user without touching LastSeen.
func (s *Store) UpdateUser(ctx context.Context, botID string, userID int64, fn func(*domain.User)) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := loadList[domain.User](ctx, s, usersKey(botID))
	if err != nil {
		return domain.User{}, err
	}
	idx := indexOfUser(users, userID)
	if idx < 0 {
		return domain.User{}, ErrUserNotFound
	}
	fn(&users[idx])
	users[idx].ID = userID
	if err := s.save(ctx, usersKey(botID), users); err != nil {
		return domain.User{}, err
	}
	return users[idx], nil
}

// ListUsers returns the bot's users in first-seen insertion order.
func (s *Store) ListUsers(ctx context.Context, botID string) ([]domain.User, error) {
	return loadList[domain.User](ctx, s, usersKey(botID))
}

// GetUser returns a single user.
func (s *Store) GetUser(ctx context.Context, botID string, userID int64) (domain.User, error) {
	users, err := loadList[domain.User](ctx, s, usersKey(botID))
	if err != nil {
		return domain.User{}, err
	}
	if idx := indexOfUser(users, userID); idx >= 0 {
		return users[idx], nil
	}
	return domain.User{}, ErrUserNotFound
}

func indexOfUser(users []domain.User, id int64) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
