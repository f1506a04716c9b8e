package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-core/internal/users"
)

type Users struct{ DB *pgxpool.Pool }

var _ users.Store = (*Users)(nil)

func (r *Users) FindUserByID(ctx context.Context, id string) (*users.User, error) {
	var u users.User
	err := r.DB.QueryRow(ctx, `SELECT id, name, email, role, active FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Users) Put(ctx context.Context, u users.User) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, name, email, role, active) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			role = EXCLUDED.role, active = EXCLUDED.active`,
		u.ID, u.Name, u.Email, u.Role, u.Active)
	return err
}
