package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/authz"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/model"
)

// PermissionRepo owns the 'permissions' table plus the three link
// tables the resolver feeds on: role_permissions (role defaults),
// user_permissions (grants) and user_denied_permissions (denials).
// Mutations of a user's permission state run inside one transaction:
// the state is read, authz plans the change, and the planned row write
// commits atomically with that read.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// querier is satisfied by both *sql.DB and *sql.Tx so state loading can
// run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// List returns all permissions ordered by id.
func (r *PermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name FROM permissions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID fetches a single permission.
func (r *PermissionRepo) GetByID(ctx context.Context, id uint64) (model.Permission, error) {
	return getPermission(ctx, r.DB, id)
}

// Create inserts a new capability name.
func (r *PermissionRepo) Create(ctx context.Context, name string) (model.Permission, error) {
	name = strings.TrimSpace(name)
	res, err := r.DB.ExecContext(ctx, "INSERT INTO permissions (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Permission{}, ErrPermissionExists
		}
		return model.Permission{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Permission{}, err
	}
	return model.Permission{ID: uint64(id), Name: name}, nil
}

// Rename changes a permission's capability name.
func (r *PermissionRepo) Rename(ctx context.Context, id uint64, name string) (model.Permission, error) {
	name = strings.TrimSpace(name)
	res, err := r.DB.ExecContext(ctx, "UPDATE permissions SET name=? WHERE id=?", name, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Permission{}, ErrPermissionExists
		}
		return model.Permission{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Permission{}, err
	}
	if n == 0 {
		// Renaming to the identical name also affects zero rows, so
		// distinguish "no such row" explicitly.
		if _, err := getPermission(ctx, r.DB, id); err != nil {
			return model.Permission{}, err
		}
	}
	return model.Permission{ID: id, Name: name}, nil
}

// Delete removes a permission and, via ON DELETE CASCADE on the link
// tables, every grant/denial/role default referencing it.
func (r *PermissionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM permissions WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// StateForUser loads the user's three permission sources for resolution
// at admin-query time or login.
func (r *PermissionRepo) StateForUser(ctx context.Context, userID uint64) (authz.PermissionState, error) {
	return loadState(ctx, r.DB, userID)
}

// AddToUser gives a permission to a user following the precedence
// rules: lift a denial if one suppresses the permission, otherwise
// create a grant unless one already exists.
func (r *PermissionRepo) AddToUser(ctx context.Context, userID, permID uint64) (authz.Outcome, model.Permission, error) {
	return r.mutate(ctx, userID, permID, authz.PlanAdd)
}

// RemoveFromUser takes a permission away: a direct grant is deleted, a
// role-inherited permission is overridden with a denial.
func (r *PermissionRepo) RemoveFromUser(ctx context.Context, userID, permID uint64) (authz.Outcome, model.Permission, error) {
	return r.mutate(ctx, userID, permID, authz.PlanRemove)
}

func (r *PermissionRepo) mutate(ctx context.Context, userID, permID uint64, plan func(authz.PermissionState, uint64) authz.Outcome) (authz.Outcome, model.Permission, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.Permission{}, err
	}
	defer tx.Rollback()

	perm, err := getPermission(ctx, tx, permID)
	if err != nil {
		return 0, model.Permission{}, err
	}
	state, err := loadState(ctx, tx, userID)
	if err != nil {
		return 0, model.Permission{}, err
	}

	outcome := plan(state, permID)
	switch outcome {
	case authz.OutcomeGranted:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO user_permissions (user_id, permission_id) VALUES (?,?)", userID, permID)
	case authz.OutcomeDenialLifted:
		_, err = tx.ExecContext(ctx,
			"DELETE FROM user_denied_permissions WHERE user_id=? AND permission_id=?", userID, permID)
	case authz.OutcomeGrantDeleted:
		_, err = tx.ExecContext(ctx,
			"DELETE FROM user_permissions WHERE user_id=? AND permission_id=?", userID, permID)
	case authz.OutcomeDenied:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO user_denied_permissions (user_id, permission_id) VALUES (?,?)", userID, permID)
	}
	if err != nil {
		return 0, model.Permission{}, err
	}
	if err := tx.Commit(); err != nil {
		return 0, model.Permission{}, err
	}
	return outcome, perm, nil
}

func getPermission(ctx context.Context, q querier, id uint64) (model.Permission, error) {
	var p model.Permission
	err := q.QueryRowContext(ctx, "SELECT id, name FROM permissions WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permission{}, ErrPermissionNotFound
	}
	return p, err
}

func loadState(ctx context.Context, q querier, userID uint64) (authz.PermissionState, error) {
	state := authz.PermissionState{
		RolePerms: map[uint64]string{},
		Grants:    map[uint64]string{},
		Denials:   map[uint64]string{},
	}

	var roleID uint64
	err := q.QueryRowContext(ctx, "SELECT role_id FROM users WHERE id=? LIMIT 1", userID).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return state, ErrUserNotFound
	}
	if err != nil {
		return state, err
	}

	if err := scanIDNames(ctx, q, state.RolePerms,
		`SELECT p.id, p.name FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id WHERE rp.role_id=?`, roleID); err != nil {
		return state, err
	}
	if err := scanIDNames(ctx, q, state.Grants,
		`SELECT p.id, p.name FROM user_permissions up
		 JOIN permissions p ON p.id = up.permission_id WHERE up.user_id=?`, userID); err != nil {
		return state, err
	}
	if err := scanIDNames(ctx, q, state.Denials,
		`SELECT p.id, p.name FROM user_denied_permissions dp
		 JOIN permissions p ON p.id = dp.permission_id WHERE dp.user_id=?`, userID); err != nil {
		return state, err
	}
	return state, nil
}

func scanIDNames(ctx context.Context, q querier, dst map[uint64]string, query string, arg interface{}) error {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		dst[id] = name
	}
	return rows.Err()
}
