package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fruitsalade/docportal/internal/metrics"
	"github.com/fruitsalade/docportal/internal/pin"
	"github.com/fruitsalade/docportal/internal/settings"
)

// ─── Document PINs ──────────────────────────────────────────────────────────

// Credential returns the PIN row of userID, or a zero Credential.
func (s *Store) Credential(ctx context.Context, userID string) (pin.Credential, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_pin", time.Since(start)) }()

	var c pin.Credential
	var locked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT pin_hash, failed_attempts, locked_until FROM document_pins WHERE user_id = $1`,
		userID).Scan(&c.Hash, &c.FailedAttempts, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return pin.Credential{}, nil
	}
	if err != nil {
		return pin.Credential{}, fmt.Errorf("get pin: %w", err)
	}
	if locked.Valid {
		t := locked.Time
		c.LockedUntil = &t
	}
	return c, nil
}

// SaveCredential writes the PIN row of userID.
func (s *Store) SaveCredential(ctx context.Context, userID string, c pin.Credential) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("save_pin", time.Since(start)) }()

	var locked sql.NullTime
	if c.LockedUntil != nil {
		locked = sql.NullTime{Time: *c.LockedUntil, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_pins (user_id, pin_hash, failed_attempts, locked_until, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   pin_hash = EXCLUDED.pin_hash, failed_attempts = EXCLUDED.failed_attempts,
		   locked_until = EXCLUDED.locked_until, updated_at = NOW()`,
		userID, c.Hash, c.FailedAttempts, locked)
	if err != nil {
		return fmt.Errorf("save pin: %w", err)
	}
	return nil
}

// ResetCredentials removes the PIN rows of every listed user.
func (s *Store) ResetCredentials(ctx context.Context, userIDs []string) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("reset_pins", time.Since(start)) }()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM document_pins WHERE user_id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("reset pins: %w", err)
	}
	return nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Settings returns the store as a settings.Store.
func (s *Store) Settings() settings.Store {
	return settingsStore{s}
}

type settingsStore struct{ s *Store }

func (st settingsStore) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_setting", time.Since(start)) }()

	var v string
	err := st.s.db.QueryRowContext(ctx,
		`SELECT setting_value FROM system_settings WHERE setting_key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", settings.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return v, nil
}

func (st settingsStore) Set(ctx context.Context, key, value string) error {
	if !settings.ValidKey(key) {
		return settings.ErrInvalidKey
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("set_setting", time.Since(start)) }()

	_, err := st.s.db.ExecContext(ctx,
		`INSERT INTO system_settings (setting_key, setting_value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (st settingsStore) All(ctx context.Context) (map[string]string, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_settings", time.Since(start)) }()

	rows, err := st.s.db.QueryContext(ctx, `SELECT setting_key, setting_value FROM system_settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
