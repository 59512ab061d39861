package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

const userColumns = `id, username, email, full_name, password_hash, role, is_active, sede, created_at, last_login, updated_at`

// PostgresUserRepository stores identities in the users table.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a user repository over db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		lastLogin sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&role, &u.IsActive, &u.Site, &u.CreatedAt, &lastLogin, &updatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		u.UpdatedAt = &t
	}
	return &u, nil
}

// Create inserts u. A username or email collision yields models.ErrDuplicateKey.
func (r *PostgresUserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, full_name, password_hash, role, is_active, sede, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.IsActive, u.Site, u.CreatedAt)
	return translate("create user", err)
}

// FindByID returns the user with the given id or models.ErrNotFound.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate("find user", err)
	}
	return u, nil
}

// FindByUsername returns the user with the given username or models.ErrNotFound.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, translate("find user by username", err)
	}
	return u, nil
}

// ExistsByUsernameOrEmail reports whether either identifier is already taken.
func (r *PostgresUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	return exists, translate("check user exists", err)
}

// HasAdmin reports whether at least one admin identity exists.
func (r *PostgresUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`, string(models.RoleAdmin),
	).Scan(&exists)
	return exists, translate("check admin exists", err)
}

// List returns every user ordered by username.
func (r *PostgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	return listUsers(ctx, r.DB)
}

func listUsers(ctx context.Context, q querier) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate("scan user", err)
		}
		users = append(users, *u)
	}
	return users, translate("list users", rows.Err())
}

// userAssignments returns the columns set in upd with their values, in the
// order of UserUpdate.Fields.
func userAssignments(upd models.UserUpdate) ([]string, []any) {
	var (
		cols []string
		args []any
	)
	if upd.Email != nil {
		cols, args = append(cols, "email"), append(args, *upd.Email)
	}
	if upd.FullName != nil {
		cols, args = append(cols, "full_name"), append(args, *upd.FullName)
	}
	if upd.Role != nil {
		cols, args = append(cols, "role"), append(args, string(*upd.Role))
	}
	if upd.IsActive != nil {
		cols, args = append(cols, "is_active"), append(args, *upd.IsActive)
	}
	if upd.Site != nil {
		cols, args = append(cols, "sede"), append(args, *upd.Site)
	}
	return cols, args
}

// Update writes only the identity columns set in upd plus updated_at and
// returns the stored identity. An email collision yields models.ErrDuplicateKey.
func (r *PostgresUserRepository) Update(ctx context.Context, id string, upd models.UserUpdate, at time.Time) (*models.User, error) {
	cols, args := userAssignments(upd)
	cols = append(cols, "updated_at")
	args = append(args, at, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		setClause(cols), len(args), userColumns)
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate("update user", err)
	}
	return u, nil
}

// TouchLastLogin stamps the last successful login time.
func (r *PostgresUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return translate("touch last login", err)
	}
	return requireAffected(res, "touch last login")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
