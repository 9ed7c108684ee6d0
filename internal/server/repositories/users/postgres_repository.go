package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/dbx"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// SQLSTATE unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, username, email, hashed_password, salt, first_name, last_name,
		 is_superuser, is_active, is_reported, is_blocked, preferences, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1`

	return r.getOne(ctx, query, id)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1
		 FOR UPDATE`

	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetBy(ctx context.Context, f Filter) (*models.User, error) {
	if f.IsEmpty() {
		return nil, errors.New("empty user filter")
	}

	var (
		conds []string
		args  []any
	)
	if f.UserName != "" {
		args = append(args, f.UserName)
		conds = append(conds, "username = $"+strconv.Itoa(len(args)))
	}
	if f.Email != "" {
		args = append(args, f.Email)
		conds = append(conds, "email = $"+strconv.Itoa(len(args)))
	}

	joiner := " AND "
	if f.MatchAny {
		joiner = " OR "
	}
	where := "(" + strings.Join(conds, joiner) + ")"

	if f.ExcludeID != "" {
		args = append(args, f.ExcludeID)
		where += " AND id <> $" + strconv.Itoa(len(args))
	}

	query := `SELECT ` + userColumns + `
		 FROM users
		 WHERE ` + where + `
		 LIMIT 1`

	return r.getOne(ctx, query, args...)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM users
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2`

	result := []*models.User{}
	if err := sqlx.SelectContext(ctx, r.db, &result, query, limit, offset); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.UserName, user.Email, user.HashedPassword, user.Salt,
		user.FirstName, user.LastName, user.IsSuperuser, user.IsActive,
		user.IsReported, user.IsBlocked, user.Preferences, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		return nil, translateError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET username = $2, email = $3, hashed_password = $4, salt = $5,
		     first_name = $6, last_name = $7, is_superuser = $8, is_active = $9,
		     is_reported = $10, is_blocked = $11, preferences = $12, updated_at = $13
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.Email, user.HashedPassword, user.Salt,
		user.FirstName, user.LastName, user.IsSuperuser, user.IsActive,
		user.IsReported, user.IsBlocked, user.Preferences, user.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := sqlx.GetContext(ctx, r.db, user, query, args...)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// translateError turns unique violations into common.ErrorConflict so the
// store constraint, not the application probe, has the final say.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
