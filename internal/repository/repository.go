package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dan9191/expense-service/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schema string

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables if they do not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, is_superuser, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.IsSuperuser).
		Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username = $1", username)
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findUser(ctx, "id = $1", id)
}

func (r *Repository) findUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, password_hash, is_superuser, created_at
		FROM users
		WHERE ` + where
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

const transactionColumns = `id, user_id, title, description, amount, transaction_type, tax, tax_type, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var description sql.NullString
	err := row.Scan(&tx.ID, &tx.OwnerID, &tx.Title, &description, &tx.Amount,
		&tx.TransactionType, &tx.Tax, &tx.TaxType, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		tx.Description = &description.String
	}
	return tx, nil
}

// CreateTransaction inserts a record owned by ownerID
func (r *Repository) CreateTransaction(ctx context.Context, ownerID int64, f models.TransactionFields) (*models.Transaction, error) {
	query := `
		INSERT INTO expenses (user_id, title, description, amount, transaction_type, tax, tax_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, ownerID, f.Title, f.Description,
		f.Amount, f.TransactionType, f.Tax, f.TaxType))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// FindTransactionByID looks a record up regardless of its owner
func (r *Repository) FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM expenses WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction overwrites the writable fields and refreshes updated_at
func (r *Repository) UpdateTransaction(ctx context.Context, id int64, f models.TransactionFields) (*models.Transaction, error) {
	query := `
		UPDATE expenses
		SET title = $2, description = $3, amount = $4, transaction_type = $5, tax = $6, tax_type = $7,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, f.Title, f.Description,
		f.Amount, f.TransactionType, f.Tax, f.TaxType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction removes a record permanently
func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactions returns the total number of matches and the requested window
func (r *Repository) ListTransactions(ctx context.Context, q models.TransactionQuery) (int, []models.Transaction, error) {
	where, args := whereClause(q)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&count); err != nil {
		return 0, nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM expenses` + where + orderClause(q) + limitClause(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return count, txs, nil
}
