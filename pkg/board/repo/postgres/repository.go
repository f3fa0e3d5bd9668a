package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-board/pkg/board"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements board.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "users") {
				return board.ErrUserExists
			}
			if strings.Contains(pgErr.ConstraintName, "post_number") {
				return fmt.Errorf("post number already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Content operations

const contentColumns = `document_id, post_number, category, title, contents, images,
		created_at, updated_at, is_deleted`

func scanContent(row pgx.Row) (*board.Content, error) {
	var (
		content  board.Content
		category string
		deleted  bool
	)
	err := row.Scan(&content.DocumentID, &content.PostNumber, &category, &content.Title,
		&content.Contents, &content.Images, &content.CreatedAt, &content.UpdatedAt, &deleted)
	if err != nil {
		return nil, err
	}
	content.Category = board.Category(category)
	content.State = board.StateFromDeleted(deleted)
	if content.Images == nil {
		content.Images = []string{}
	}
	return &content, nil
}

func (r *Repository) InsertContent(ctx context.Context, content *board.Content) error {
	if content.DocumentID == "" {
		content.DocumentID = uuid.NewString()
	}
	images := content.Images
	if images == nil {
		images = []string{}
	}

	query := `
		INSERT INTO contents (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		content.DocumentID, content.PostNumber, string(content.Category), content.Title,
		content.Contents, images, content.CreatedAt, content.UpdatedAt, content.IsDeleted())
	if err != nil {
		return r.handlePostgresError("insert content", err)
	}
	return nil
}

func (r *Repository) FindContent(ctx context.Context, postNumber int64, state board.DeletionState) (*board.Content, error) {
	where, args := contentWhere(board.ContentFilter{State: state})
	args = append(args, postNumber)
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE %s AND post_number = $%d LIMIT 1`,
		contentColumns, where, len(args))

	content, err := scanContent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, board.ErrContentNotFound
		}
		return nil, r.handlePostgresError("find content", err)
	}
	return content, nil
}

func (r *Repository) UpdateContent(ctx context.Context, documentID string, patch board.ContentPatch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Category != nil {
		add("category", string(*patch.Category))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Contents != nil {
		add("contents", *patch.Contents)
	}
	if patch.Images != nil {
		add("images", patch.Images)
	}
	if patch.State != nil {
		add("is_deleted", *patch.State == board.StateSoftDeleted)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, documentID)
	query := fmt.Sprintf(`UPDATE contents SET %s WHERE document_id = $%d`,
		strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrContentNotFound
	}
	return nil
}

func (r *Repository) CountContents(ctx context.Context, filter board.ContentFilter) (int, error) {
	where, args := contentWhere(filter)
	query := "SELECT COUNT(*) FROM contents WHERE " + where

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, r.handlePostgresError("count contents", err)
	}
	return total, nil
}

func (r *Repository) ListContents(ctx context.Context, filter board.ContentFilter, page board.Pagination) ([]*board.Content, error) {
	if page.Offset < 0 {
		return nil, fmt.Errorf("negative offset %d", page.Offset)
	}
	where, args := contentWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE %s ORDER BY post_number DESC`, contentColumns, where)
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, page.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list contents", err)
	}
	defer rows.Close()

	contents := []*board.Content{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan content", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list contents", err)
	}
	return contents, nil
}

// contentWhere builds the WHERE clause for a compound equality filter
func contentWhere(filter board.ContentFilter) (string, []interface{}) {
	where := "1=1"
	args := []interface{}{}

	if filter.State != "" {
		args = append(args, filter.State == board.StateSoftDeleted)
		where += fmt.Sprintf(" AND is_deleted = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	return where, args
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *board.User) error {
	query := `
		INSERT INTO users (uid, email, name, created_at, updated_at, is_admin, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		user.UID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
		user.IsAdmin, user.IsActive, user.IsDeleted())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return board.ErrUserExists
		}
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, uid string) (*board.User, error) {
	query := `
		SELECT uid, email, name, created_at, updated_at, is_admin, is_active
		FROM users WHERE uid = $1 AND is_deleted = FALSE`

	user := board.User{State: board.StateActive}
	err := r.db.QueryRow(ctx, query, uid).Scan(
		&user.UID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
		&user.IsAdmin, &user.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, board.ErrUserNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}
	return &user, nil
}

func (r *Repository) UpdateUser(ctx context.Context, uid string, patch board.UserPatch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.IsAdmin != nil {
		add("is_admin", *patch.IsAdmin)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.State != nil {
		add("is_deleted", *patch.State == board.StateSoftDeleted)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, uid)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE uid = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrUserNotFound
	}
	return nil
}

var _ board.Repository = (*Repository)(nil)
