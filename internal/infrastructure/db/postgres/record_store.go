package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

var _ ports.RecordStore = (*RecordStore)(nil)

// RecordStore is the PostgreSQL record store. Customer id generation and the
// employee credential check run as SQL functions defined in schema.sql.
type RecordStore struct {
	pool *pgxpool.Pool
}

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

func (s *RecordStore) GenerateCustomerID(ctx context.Context) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, `SELECT generate_customer_id()`).Scan(&id); err != nil {
		return "", fmt.Errorf("generate customer id: %w", err)
	}
	return id, nil
}

func (s *RecordStore) InsertCustomerProfile(ctx context.Context, p *domain.CustomerProfile) error {
	query := `
		INSERT INTO customer_profiles (user_id, customer_id, full_name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		p.UserID, p.CustomerID, p.FullName, p.Email, p.Phone, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert customer profile: duplicate user or customer id: %w", err)
		}
		return fmt.Errorf("insert customer profile: %w", err)
	}
	return nil
}

func (s *RecordStore) ReadCustomerProfile(ctx context.Context, userID string) (*domain.CustomerProfile, error) {
	query := `
		SELECT customer_id, user_id, full_name, email, phone, created_at
		FROM customer_profiles WHERE user_id = $1`
	var p domain.CustomerProfile
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.CustomerID, &p.UserID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("read customer profile: %w", err)
	}
	return &p, nil
}

func (s *RecordStore) CheckEmployeeCredentials(ctx context.Context, username, password string) (string, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT check_employee_credentials($1, $2)`, username, password).Scan(&ok)
	if err != nil {
		return "", fmt.Errorf("check employee credentials: %w", err)
	}
	if !ok {
		return "", domain.ErrInvalidEmployeeCredentials
	}
	return uuid.NewString(), nil
}

// SeedEmployee creates or replaces the credentials of username, hashing the
// password with pgcrypto's bcrypt.
func (s *RecordStore) SeedEmployee(ctx context.Context, username, password string) error {
	query := `
		INSERT INTO employees (username, password_hash)
		VALUES ($1, crypt($2, gen_salt('bf')))
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`
	if _, err := s.pool.Exec(ctx, query, username, password); err != nil {
		return fmt.Errorf("seed employee: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
