package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/irisova/flower-order-reservation/internal/model"
)

// UserRepo provides access to user accounts.
type UserRepo struct {
	db *DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user and populates the generated ID.  A duplicate
// email maps to ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`
	res, err := r.db.q(ctx).ExecContext(ctx, q, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrEmailTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail loads a user by login email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`
	return scanUser(r.db.q(ctx).QueryRowContext(ctx, q, email))
}

// GetByID loads a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`
	return scanUser(r.db.q(ctx).QueryRowContext(ctx, q, id))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
