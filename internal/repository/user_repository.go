package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/utils"
)

// UserRepo reads and writes the 'users' table. Role names are joined in
// so callers get a complete model.User without a second query.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.username, u.email, u.password_hash, u.role_id, r.name, u.created_at`

// GetRole fetches a role by id.
func (r *UserRepo) GetRole(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrRoleNotFound
	}
	return role, err
}

// Create inserts a user with a bcrypt-hashed password and returns its ID.
// The role is looked up first so an unknown role surfaces as
// ErrRoleNotFound instead of a raw foreign-key failure.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, roleID uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := r.GetRole(ctx, roleID); err != nil {
		return 0, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role_id) VALUES (?,?,?,?)",
		username, email, hash, roleID)
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "1062") {
			return 0, ErrEmailExists
		}
		if strings.Contains(low, "1452") { // role deleted between lookup and insert
			return 0, ErrRoleNotFound
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.email=? LIMIT 1",
		email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.id=? LIMIT 1",
		id)
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id ORDER BY u.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update changes a user's username and email.
func (r *UserRepo) Update(ctx context.Context, id uint64, username, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=? WHERE id=?", username, email, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Writing identical values also affects zero rows, so check
		// existence explicitly before reporting not-found.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePassword replaces a user's credential hash. The caller is
// responsible for verifying the current password first.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRole moves a user to a new role and clears the per-user
// grant/denial overrides in the same transaction: overrides were
// decisions made against the old role's defaults, so the user starts
// from the new role's baseline. Outstanding tokens keep their old
// snapshot until re-login.
func (r *UserRepo) UpdateRole(ctx context.Context, userID, roleID uint64) (model.Role, error) {
	role, err := r.GetRole(ctx, roleID)
	if err != nil {
		return model.Role{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Role{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE users SET role_id=? WHERE id=?", roleID, userID)
	if err != nil {
		return model.Role{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Role{}, err
	}
	if n == 0 {
		// Re-assigning the same role affects zero rows too.
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", userID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Role{}, ErrUserNotFound
		}
		if err != nil {
			return model.Role{}, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_permissions WHERE user_id=?", userID); err != nil {
		return model.Role{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_denied_permissions WHERE user_id=?", userID); err != nil {
		return model.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Role{}, err
	}
	return role, nil
}

// Delete removes a user; grants and denials go with it via ON DELETE
// CASCADE on the link tables.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}
