package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool. Condition-on-absence
// writes map to INSERT ... ON CONFLICT DO NOTHING; the created flag comes
// from the number of affected rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateAccount(ctx context.Context, account Account) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		account.ID, account.Email, account.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) AccountByEmail(ctx context.Context, normalizedEmail string) (Account, error) {
	var account Account
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, created_at
		FROM accounts
		WHERE email = $1`,
		normalizedEmail,
	).Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (p *Postgres) AccountByID(ctx context.Context, accountID string) (Account, error) {
	var account Account
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, created_at
		FROM accounts
		WHERE id = $1`,
		accountID,
	).Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (p *Postgres) CreateAuthMethod(ctx context.Context, method AuthMethod) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO auth_methods (account_id, method, provider, source_identity_id, linked_at, verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, method) DO NOTHING`,
		method.AccountID, method.Method, method.Provider,
		method.SourceIdentityID, method.LinkedAt, method.Verified,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) AuthMethods(ctx context.Context, accountID string) ([]AuthMethod, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT account_id, method, provider, source_identity_id, linked_at, verified
		FROM auth_methods
		WHERE account_id = $1
		ORDER BY linked_at, method`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuthMethod
	for rows.Next() {
		var m AuthMethod
		if err := rows.Scan(&m.AccountID, &m.Method, &m.Provider, &m.SourceIdentityID, &m.LinkedAt, &m.Verified); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO audit_log (id, account_id, event_type, method, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.AccountID, entry.EventType, entry.Method, entry.Detail, entry.CreatedAt,
	)
	return err
}

func (p *Postgres) AuditTrail(ctx context.Context, accountID string) ([]AuditEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, account_id, event_type, method, detail, created_at
		FROM audit_log
		WHERE account_id = $1
		ORDER BY created_at, id`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.EventType, &e.Method, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
