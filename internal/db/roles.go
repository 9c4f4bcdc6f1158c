package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

// RoleDelta is what UpdateUserRoles actually wrote.
type RoleDelta struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

type RoleRepository interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	UpsertUser(ctx context.Context, email, givenName, surname string) (*model.User, error)
	ListUsersWithRoles(ctx context.Context) ([]model.UserWithRoles, error)
	GetUserRoles(ctx context.Context, email string) ([]string, error)
	UpdateUserRoles(ctx context.Context, email string, requested []string) (RoleDelta, error)
}

type roleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []model.Role{}
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *roleRepository) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO roles (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("create role %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Role{ID: id, Name: name}, nil
}

func (r *roleRepository) UpsertUser(ctx context.Context, email, givenName, surname string) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := getUser(ctx, tx, email)
	switch {
	case err == nil:
		if user.GivenName != givenName || user.Surname != surname {
			if _, err := tx.ExecContext(ctx, `UPDATE users SET given_name = ?, surname = ? WHERE id = ?`, givenName, surname, user.ID); err != nil {
				return nil, err
			}
			user.GivenName, user.Surname = givenName, surname
		}
	case errors.Is(err, perrors.ErrNotFound):
		res, err := tx.ExecContext(ctx, `INSERT INTO users (email, given_name, surname, enabled) VALUES (?, ?, ?, ?)`,
			email, givenName, surname, true)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		user = &model.User{ID: id, Email: email, GivenName: givenName, Surname: surname, Enabled: true}
	default:
		return nil, err
	}

	return user, tx.Commit()
}

func (r *roleRepository) ListUsersWithRoles(ctx context.Context) ([]model.UserWithRoles, error) {
	query := `SELECT u.id, u.email, u.given_name, u.surname, u.enabled, r.name
			  FROM users u
			  LEFT JOIN user_roles ur ON ur.user_id = u.id
			  LEFT JOIN roles r ON r.id = ur.role_id
			  ORDER BY u.email, r.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.UserWithRoles{}
	index := map[int64]int{}
	for rows.Next() {
		var u model.User
		var role sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.GivenName, &u.Surname, &u.Enabled, &role); err != nil {
			return nil, err
		}
		i, ok := index[u.ID]
		if !ok {
			i = len(users)
			index[u.ID] = i
			users = append(users, model.UserWithRoles{User: u, Roles: []string{}})
		}
		if role.Valid {
			users[i].Roles = append(users[i].Roles, role.String)
		}
	}
	return users, rows.Err()
}

func (r *roleRepository) GetUserRoles(ctx context.Context, email string) ([]string, error) {
	query := `SELECT r.name FROM roles r
			  JOIN user_roles ur ON ur.role_id = r.id
			  JOIN users u ON u.id = ur.user_id
			  WHERE u.email = ? ORDER BY r.name`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// UpdateUserRoles applies only the difference between the user's current and requested roles.
func (r *roleRepository) UpdateUserRoles(ctx context.Context, email string, requested []string) (RoleDelta, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return RoleDelta{}, err
	}
	defer tx.Rollback()

	user, err := getUser(ctx, tx, email)
	if err != nil {
		return RoleDelta{}, err
	}

	roleIDs, err := roleIDsByName(ctx, tx)
	if err != nil {
		return RoleDelta{}, err
	}

	current := map[string]bool{}
	rows, err := tx.QueryContext(ctx, `SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ?`, user.ID)
	if err != nil {
		return RoleDelta{}, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return RoleDelta{}, err
		}
		current[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RoleDelta{}, err
	}

	wanted := map[string]bool{}
	for _, name := range requested {
		if _, ok := roleIDs[name]; !ok {
			return RoleDelta{}, perrors.NewValidationError("roles", name, "unknown role")
		}
		wanted[name] = true
	}

	delta := RoleDelta{Added: []string{}, Removed: []string{}}
	for name := range wanted {
		if !current[name] {
			delta.Added = append(delta.Added, name)
		}
	}
	for name := range current {
		if !wanted[name] {
			delta.Removed = append(delta.Removed, name)
		}
	}
	sort.Strings(delta.Added)
	sort.Strings(delta.Removed)

	for _, name := range delta.Added {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`, user.ID, roleIDs[name]); err != nil {
			return RoleDelta{}, err
		}
	}
	for _, name := range delta.Removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`, user.ID, roleIDs[name]); err != nil {
			return RoleDelta{}, err
		}
	}

	return delta, tx.Commit()
}

func getUser(ctx context.Context, tx *sql.Tx, email string) (*model.User, error) {
	var u model.User
	err := tx.QueryRowContext(ctx, `SELECT id, email, given_name, surname, enabled FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.GivenName, &u.Surname, &u.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func roleIDsByName(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := map[string]int64{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}
