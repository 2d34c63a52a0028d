package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wechat_sync/internal/domain"
)

type AccountStore struct {
	db *sqlx.DB
}

func NewAccountStore(db *sqlx.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Get returns nil when the account does not exist.
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, name, app_id, app_secret, last_synced_at, total_synced
		FROM wechat_accounts
		WHERE id = $1`

	err := s.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// RecordSync adds synced to the account total and stamps the sync time.
func (s *AccountStore) RecordSync(ctx context.Context, id string, synced int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wechat_accounts
		SET last_synced_at = $2, total_synced = total_synced + $3, updated_at = now()
		WHERE id = $1`,
		id, at, synced,
	)
	return err
}

func (s *AccountStore) Save(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO wechat_accounts (id, name, app_id, app_secret)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			app_id = EXCLUDED.app_id,
			app_secret = EXCLUDED.app_secret,
			updated_at = now()`

	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.AppID,
		account.AppSecret,
	)
	return err
}
