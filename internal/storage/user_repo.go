package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// AddUser inserts a student account. Usernames are unique; inserting an
// existing one returns an error the caller can surface as a conflict.
func (r *UserRepo) AddUser(ctx context.Context, username, passwordHash, role string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)`,
		username, passwordHash, role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetUser(ctx context.Context, username string) (models.User, bool, error) {
	var u models.User
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

func (r *UserRepo) ListStudents(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE role=$1 ORDER BY username`,
		models.RoleStudent,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// DeleteUser removes a student account. Admin accounts are not deletable
// through this path.
func (r *UserRepo) DeleteUser(ctx context.Context, username string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM users WHERE username=$1 AND role=$2`,
		username, models.RoleStudent,
	)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
