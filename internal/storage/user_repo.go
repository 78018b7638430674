package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_user_store.go -package=mocks skillhub/internal/storage UserStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// UserRecord represents a user account in the database.
// An empty AllowedSkills list means the user is unrestricted.
type UserRecord struct {
	Username      string
	PasswordHash  string
	Role          string // admin | editor | viewer
	AllowedSkills []string
}

// UserStore defines the interface for user persistence.
type UserStore interface {
	// GetUser fetches a user by username. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, username string) (*UserRecord, error)
	// CreateUser inserts or overwrites a user record.
	CreateUser(ctx context.Context, user *UserRecord) error
	// UpdateAllowedSkills replaces a user's allow-list.
	// Returns ErrNotFound when the user does not exist.
	UpdateAllowedSkills(ctx context.Context, username string, allowedSkills []string) error
	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]UserRecord, error)
	// DeleteUser removes a user. Returns false when it did not exist.
	DeleteUser(ctx context.Context, username string) (bool, error)
}

// UserRepo provides methods for user operations backed by SQLite.
// It implements the UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by username. Returns ErrNotFound if absent.
func (r *UserRepo) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	var user UserRecord
	var allowedJSON string

	err := r.db.QueryRowContext(ctx,
		"SELECT username, password_hash, role, allowed_skills FROM users WHERE username = ?",
		username,
	).Scan(&user.Username, &user.PasswordHash, &user.Role, &allowedJSON)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if err := json.Unmarshal([]byte(allowedJSON), &user.AllowedSkills); err != nil {
		return nil, fmt.Errorf("failed to parse allowed_skills: %w", err)
	}
	if user.AllowedSkills == nil {
		user.AllowedSkills = []string{}
	}
	return &user, nil
}

// CreateUser inserts or overwrites a user record.
func (r *UserRepo) CreateUser(ctx context.Context, user *UserRecord) error {
	allowedJSON, err := json.Marshal(user.AllowedSkills)
	if err != nil {
		return fmt.Errorf("failed to encode allowed_skills: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, allowed_skills)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET
		 password_hash = excluded.password_hash, role = excluded.role,
		 allowed_skills = excluded.allowed_skills`,
		user.Username, user.PasswordHash, user.Role, string(allowedJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpdateAllowedSkills replaces a user's allow-list.
func (r *UserRepo) UpdateAllowedSkills(ctx context.Context, username string, allowedSkills []string) error {
	allowedJSON, err := json.Marshal(allowedSkills)
	if err != nil {
		return fmt.Errorf("failed to encode allowed_skills: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET allowed_skills = ? WHERE username = ?",
		string(allowedJSON), username,
	)
	if err != nil {
		return fmt.Errorf("failed to update allowed_skills: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all users ordered by username.
func (r *UserRepo) ListUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT username, password_hash, role, allowed_skills FROM users ORDER BY username",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []UserRecord
	for rows.Next() {
		var user UserRecord
		var allowedJSON string
		if err := rows.Scan(&user.Username, &user.PasswordHash, &user.Role, &allowedJSON); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if err := json.Unmarshal([]byte(allowedJSON), &user.AllowedSkills); err != nil {
			return nil, fmt.Errorf("failed to parse allowed_skills: %w", err)
		}
		if user.AllowedSkills == nil {
			user.AllowedSkills = []string{}
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user. Returns false when it did not exist.
func (r *UserRepo) DeleteUser(ctx context.Context, username string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
