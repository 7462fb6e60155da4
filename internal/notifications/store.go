package notifications

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/pagekit/internal/db"
)

// Store keeps the set of pending notification names per participant.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Add records name for username. Adding a name that is already pending is
// a no-op and reports false.
func (s *Store) Add(ctx context.Context, username, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO participant_notifications (username, name) VALUES (?, ?)
		ON CONFLICT(username, name) DO NOTHING`, username, name)
	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Remove forgets name for username. Removing a name that is not pending is
// a no-op and reports false.
func (s *Store) Remove(ctx context.Context, username, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM participant_notifications WHERE username = ? AND name = ?", username, name)
	if err != nil {
		return false, fmt.Errorf("deleting notification: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns the pending names of username in the order they were added.
func (s *Store) List(ctx context.Context, username string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM participant_notifications WHERE username = ? ORDER BY id", username)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Usernames returns every participant with at least one pending notification.
func (s *Store) Usernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT username FROM participant_notifications ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("querying usernames: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
