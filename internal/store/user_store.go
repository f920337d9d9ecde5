package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/activity-logger/internal/domain"
)

func (s *PostgresStore) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)",
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return exists, nil
}

// CreateUser registers a username. Registering an existing user is not an
// error and returns the original row.
func (s *PostgresStore) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username)
		VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING username, created_at
	`, username).Scan(&user.Username, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if users == nil {
		users = []domain.User{}
	}

	return users, nil
}
