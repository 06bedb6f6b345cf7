package sql

import (
	"context"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/auth"
)

func (db *DB) SaveUser(ctx context.Context, u *auth.User) error {
	if err := db.save(ctx, u, u.ID == 0); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

func (db *DB) GetUser(ctx context.Context, id uint) (*auth.User, error) {
	var u auth.User

	if err := db.conn(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", id, mapError(err))
	}

	return &u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User

	if err := db.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", email, mapError(err))
	}

	return &u, nil
}
