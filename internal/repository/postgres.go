package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pgx connection pool tuned from configuration and pings it
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "parse database dsn", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeDatabase, "open pgx pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewStorageError(errors.ErrCodeDatabase, "ping postgres", err)
	}
	return pool, nil
}

// Store groups every repository over one pool
type Store struct {
	pool *pgxpool.Pool

	Users         *UserRepository
	Resumes       *ResumeRepository
	Tailored      *TailoredRepository
	Jobs          *JobRepository
	Interviews    *InterviewRepository
	Transactions  *TransactionRepository
	Announcements *AnnouncementRepository
	Recruiters    *RecruiterRepository
}

// NewStore wires all repositories to pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:          pool,
		Users:         &UserRepository{pool: pool},
		Resumes:       &ResumeRepository{pool: pool},
		Tailored:      &TailoredRepository{pool: pool},
		Jobs:          &JobRepository{pool: pool},
		Interviews:    &InterviewRepository{pool: pool},
		Transactions:  &TransactionRepository{pool: pool},
		Announcements: &AnnouncementRepository{pool: pool},
		Recruiters:    &RecruiterRepository{pool: pool},
	}
}

// Ping checks database connectivity for health reporting
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.NewStorageError(errors.ErrCodeDatabase, "ping postgres", err)
	}
	return nil
}

// Stats returns pool statistics for the stats endpoint
func (s *Store) Stats() map[string]any {
	st := s.pool.Stat()
	return map[string]any{
		"total_conns":    st.TotalConns(),
		"idle_conns":     st.IdleConns(),
		"acquired_conns": st.AcquiredConns(),
		"max_conns":      st.MaxConns(),
	}
}

// Close closes the pool
func (s *Store) Close() {
	s.pool.Close()
}

// notFoundOr maps pgx.ErrNoRows to a not found error and anything else to a storage error
func notFoundOr(err error, code, what string) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NewNotFoundError(code, what+" not found")
	}
	return storageErr(err, "load "+what)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match itself literally inside a LIKE pattern using ESCAPE '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// qualify prefixes every column of a comma separated list with alias
func qualify(columns, alias string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func storageErr(err error, op string) error {
	return errors.NewStorageError(errors.ErrCodeDatabase, fmt.Sprintf("%s failed", op), err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}
