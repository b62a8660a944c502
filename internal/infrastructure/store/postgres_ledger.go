package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const recordColumns = `order_id, customer_email, customer_name, customer_phone,
	customer_address, customer_city, customer_country, items, total, currency,
	payment_method, status, payment_reference, failure_reason, submitted_at,
	created_at, updated_at, version`

// PostgresLedger stores ledger records in the orders table
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "ledger_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Get(ctx context.Context, orderID string) (*order.Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM orders WHERE order_id = $1`, orderID)
	return scanRecord(row)
}

func (l *PostgresLedger) FindByReference(ctx context.Context, reference string) (*order.Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM orders WHERE payment_reference = $1`, reference)
	return scanRecord(row)
}

func (l *PostgresLedger) Save(ctx context.Context, r *order.Record) error {
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO orders (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (order_id) DO UPDATE SET
			customer_email = EXCLUDED.customer_email,
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			customer_address = EXCLUDED.customer_address,
			customer_city = EXCLUDED.customer_city,
			customer_country = EXCLUDED.customer_country,
			items = EXCLUDED.items,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			payment_method = EXCLUDED.payment_method,
			status = EXCLUDED.status,
			payment_reference = EXCLUDED.payment_reference,
			failure_reason = EXCLUDED.failure_reason,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE orders.version = EXCLUDED.version - 1
	`,
		r.OrderID,
		r.CustomerEmail,
		r.CustomerName,
		r.CustomerPhone,
		r.CustomerAddress,
		r.CustomerCity,
		r.CustomerCountry,
		itemsJSON,
		r.Total,
		r.Currency,
		r.Method,
		r.Status,
		nullIfEmpty(r.PaymentReference),
		r.FailureReason,
		r.SubmittedAt,
		r.CreatedAt,
		r.UpdatedAt,
		r.Version,
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (l *PostgresLedger) List(ctx context.Context) ([]order.Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var records []order.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*order.Record, error) {
	var (
		r         order.Record
		itemsJSON []byte
		reference sql.NullString
	)
	err := row.Scan(
		&r.OrderID,
		&r.CustomerEmail,
		&r.CustomerName,
		&r.CustomerPhone,
		&r.CustomerAddress,
		&r.CustomerCity,
		&r.CustomerCountry,
		&itemsJSON,
		&r.Total,
		&r.Currency,
		&r.Method,
		&r.Status,
		&reference,
		&r.FailureReason,
		&r.SubmittedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	r.PaymentReference = reference.String
	return &r, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
