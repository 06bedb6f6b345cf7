package memory

import (
	"context"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
)

func (db *DB) SaveUser(ctx context.Context, u *auth.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return err
	}

	for _, existing := range db.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return fmt.Errorf("user %s: %w", u.Email, booking.ErrConstraint)
		}
	}

	if u.ID == 0 {
		id, err := db.nextID(ctx, "users")
		if err != nil {
			return err
		}

		u.ID = id
	}

	u.Touch(db.now())

	userCopy := *u
	put(db, trx, db.users, u.ID, &userCopy)

	return nil
}

func (db *DB) GetUser(_ context.Context, id uint) (*auth.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, booking.ErrNotFound)
	}

	userCopy := *u

	return &userCopy, nil
}

func (db *DB) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			userCopy := *u

			return &userCopy, nil
		}
	}

	return nil, fmt.Errorf("user %s: %w", email, booking.ErrNotFound)
}
