package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustlens/internal/domain/models"
)

// MerchantRepository handles merchant and fraud-report persistence
type MerchantRepository struct {
	pool *pgxpool.Pool
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(pool *pgxpool.Pool) *MerchantRepository {
	return &MerchantRepository{pool: pool}
}

// Upsert inserts or updates a merchant keyed by domain
func (r *MerchantRepository) Upsert(ctx context.Context, m *models.Merchant) (*models.Merchant, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now()
	m.UpdatedAt = now

	query := `
		INSERT INTO merchants (
			id, domain, name, reputation_score, verified,
			fraud_reports, total_reports, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (domain) DO UPDATE SET
			name = EXCLUDED.name,
			reputation_score = EXCLUDED.reputation_score,
			verified = EXCLUDED.verified,
			fraud_reports = EXCLUDED.fraud_reports,
			total_reports = EXCLUDED.total_reports,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		m.ID, m.Domain, m.Name, m.ReputationScore, m.Verified,
		m.FraudReports, m.TotalReports, now,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert merchant: %w", err)
	}

	return m, nil
}

// GetByDomain retrieves a merchant by its domain. Unknown domains return
// (nil, nil).
func (r *MerchantRepository) GetByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	query := `
		SELECT id, domain, name, reputation_score, verified,
			   fraud_reports, total_reports, created_at, updated_at
		FROM merchants
		WHERE domain = $1`

	return r.scanMerchant(r.pool.QueryRow(ctx, query, domain))
}

// CountVerifiedFraud counts verified fraud reports filed against a domain
func (r *MerchantRepository) CountVerifiedFraud(ctx context.Context, domain string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM fraud_reports
		WHERE domain = $1 AND verified = true
	`, domain).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fraud reports: %w", err)
	}
	return count, nil
}

// CreateFraudReport files a new fraud report and bumps the merchant's
// report counters in the same transaction-free best-effort way the rest
// of the scoring path treats this store.
func (r *MerchantRepository) CreateFraudReport(ctx context.Context, report *models.FraudReport) (*models.FraudReport, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()

	query := `
		INSERT INTO fraud_reports (id, domain, reason, verified, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		report.ID, report.Domain, report.Reason, report.Verified, report.CreatedAt,
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create fraud report: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE merchants SET
			fraud_reports = fraud_reports + 1,
			total_reports = total_reports + 1,
			updated_at = NOW()
		WHERE domain = $1
	`, report.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to update merchant counters: %w", err)
	}

	return report, nil
}

// ListFraudReports retrieves all fraud reports for a domain, newest first
func (r *MerchantRepository) ListFraudReports(ctx context.Context, domain string) ([]*models.FraudReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, domain, reason, verified, created_at
		FROM fraud_reports
		WHERE domain = $1
		ORDER BY created_at DESC
	`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.FraudReport
	for rows.Next() {
		report := &models.FraudReport{}
		var reason pgtype.Text
		if err := rows.Scan(&report.ID, &report.Domain, &reason, &report.Verified, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fraud report: %w", err)
		}
		if reason.Valid {
			report.Reason = reason.String
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (r *MerchantRepository) scanMerchant(row pgx.Row) (*models.Merchant, error) {
	m := &models.Merchant{}
	var name pgtype.Text

	err := row.Scan(
		&m.ID, &m.Domain, &name, &m.ReputationScore, &m.Verified,
		&m.FraudReports, &m.TotalReports, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan merchant: %w", err)
	}

	if name.Valid {
		m.Name = name.String
	}

	return m, nil
}
