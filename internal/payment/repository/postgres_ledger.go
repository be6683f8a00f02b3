package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(cred *Credentials) (*PostgresLedger, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host, cred.Port, cred.User, cred.Password, cred.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &PostgresLedger{db: db}, nil
}

func (l *PostgresLedger) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(l.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

func (l *PostgresLedger) Find(ctx context.Context, idempotencyKey string) (*domain.CheckoutSubmission, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT idempotency_key, checkout_id, owner_id, gateway, total_amount, created_at
		FROM checkout_submissions
		WHERE idempotency_key = $1`, idempotencyKey)

	var sub domain.CheckoutSubmission
	err := row.Scan(&sub.IdempotencyKey, &sub.CheckoutID, &sub.OwnerID, &sub.Gateway, &sub.TotalAmount, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return &sub, nil
}

// FindByCheckout resolves a checkout back to its submission, used by the
// webhook receiver to learn whose cart to clear.
func (l *PostgresLedger) FindByCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutSubmission, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT idempotency_key, checkout_id, owner_id, gateway, total_amount, created_at
		FROM checkout_submissions
		WHERE checkout_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, checkoutID)

	var sub domain.CheckoutSubmission
	err := row.Scan(&sub.IdempotencyKey, &sub.CheckoutID, &sub.OwnerID, &sub.Gateway, &sub.TotalAmount, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return &sub, nil
}

func (l *PostgresLedger) Record(ctx context.Context, sub *domain.CheckoutSubmission) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO checkout_submissions (idempotency_key, checkout_id, owner_id, gateway, total_amount)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.IdempotencyKey, sub.CheckoutID, sub.OwnerID, sub.Gateway, sub.TotalAmount)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Complete(ctx context.Context, idempotencyKey, checkoutID string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE checkout_submissions SET checkout_id = $2
		WHERE idempotency_key = $1`, idempotencyKey, checkoutID)
	if err != nil {
		return fmt.Errorf("failed to complete submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, idempotencyKey string) error {
	if _, err := l.db.ExecContext(ctx, `
		DELETE FROM checkout_submissions
		WHERE idempotency_key = $1`, idempotencyKey); err != nil {
		return fmt.Errorf("failed to release submission: %w", err)
	}
	return nil
}
