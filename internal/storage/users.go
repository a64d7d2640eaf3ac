package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

// GetUserByToken resolves an API token to its user. Token issuance and
// rotation happen out of band.
func (q *Queries) GetUserByToken(ctx context.Context, token string) (core.User, error) {
	var u core.User
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, api_token FROM users WHERE api_token = ?", token,
	).Scan(&u.ID, &u.Name, &u.APIToken)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user token: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by token: %w", err)
	}
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, name, apiToken string) (core.User, error) {
	u := core.User{Name: name, APIToken: apiToken}
	err := q.db.QueryRowContext(ctx,
		"INSERT INTO users (name, api_token) VALUES (?, ?) RETURNING id", name, apiToken,
	).Scan(&u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}
