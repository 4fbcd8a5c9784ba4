package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/recommend"
)

const (
	candidateIDQuery = `SELECT id FROM userinfo WHERE username = $1`

	recommendationExistsQuery = `SELECT rec_id FROM recommendations WHERE user_id = $1 AND job_id = $2 AND company_id = $3`

	insertRecommendationQuery = `INSERT INTO recommendations (user_id, job_id, company_id) VALUES ($1, $2, $3)`

	seenQuery = `SELECT r.job_id FROM recommendations r JOIN userinfo u ON r.user_id = u.id WHERE u.username = $1 ORDER BY r.rec_id`

	companiesQuery = `SELECT company_id, company, domain FROM companies WHERE company_id::text = ANY($1)`
)

// PostgresConfig holds connection pool settings.
type PostgresConfig struct {
	DSN            string `mapstructure:"dsn"`
	DSNFile        string `mapstructure:"dsn-file"`
	MaxConnections int    `mapstructure:"max-connections"`
	MaxIdle        int    `mapstructure:"max-idle"`
}

// Postgres reads candidates and companies from the application database and records
// recommendations into its recommendations table.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres opens a connection pool. The connection is verified lazily on first use.
func OpenPostgres(cfg PostgresConfig, log *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgres(db, log), nil
}

func NewPostgres(db *sql.DB, log *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger.WithFields(log, zap.String("store", BackendPostgres))}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Record(ctx context.Context, candidate string, recs *recommend.Recommendations) (int, error) {
	if recs.Len() == 0 {
		return 0, nil
	}

	var userID int64
	err := p.db.QueryRowContext(ctx, candidateIDQuery, candidate).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCandidate, candidate)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup candidate: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, r := range recs.Items {
		if r.Posting.CompanyID == "" {
			p.logger.Debug("skipping recommendation without company", logger.PostingFields(r.Posting.ID, "")...)
			continue
		}

		var recID int64
		err := tx.QueryRowContext(ctx, recommendationExistsQuery, userID, r.Posting.ID, r.Posting.CompanyID).Scan(&recID)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("check recommendation %s: %w", r.Posting.ID, err)
		}

		if _, err := tx.ExecContext(ctx, insertRecommendationQuery, userID, r.Posting.ID, r.Posting.CompanyID); err != nil {
			return 0, fmt.Errorf("insert recommendation %s: %w", r.Posting.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit recommendations: %w", err)
	}
	return inserted, nil
}

func (p *Postgres) Seen(ctx context.Context, candidate string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, seenQuery, candidate)
	if err != nil {
		return nil, fmt.Errorf("query recommendation history: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recommendation history: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) Companies(ctx context.Context, ids []string) (map[string]recommend.Company, error) {
	found := make(map[string]recommend.Company, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := p.db.QueryContext(ctx, companiesQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c      recommend.Company
			domain sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &domain); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.Domain = domain.String
		found[c.ID] = c
	}
	return found, rows.Err()
}
