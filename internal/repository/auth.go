package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

// PostgresAuthRepository stores Patreon OAuth sessions in PostgreSQL, one row per device.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// LoadAuth returns the session stored for deviceID, or NotFound.
func (r *PostgresAuthRepository) LoadAuth(ctx context.Context, deviceID string) (*models.PatreonAuth, error) {
	var (
		a           models.PatreonAuth
		refreshedAt sql.NullTime
		membership  []byte
		checkedAt   sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at, user_email, user_name, user_id,
		       authenticated_at, refreshed_at, membership, membership_checked_at
		  FROM patreon_auth
		 WHERE device_id = $1`,
		deviceID,
	).Scan(
		&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.UserEmail, &a.UserName, &a.UserID,
		&a.AuthenticatedAt, &refreshedAt, &membership, &checkedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("patreon session")
	}
	if err != nil {
		return nil, apperr.Storage("load patreon session", err)
	}

	if refreshedAt.Valid {
		a.RefreshedAt = refreshedAt.Time
	}
	if checkedAt.Valid {
		a.MembershipCheckedAt = checkedAt.Time
	}
	if len(membership) > 0 {
		var m models.Membership
		if err := json.Unmarshal(membership, &m); err != nil {
			return nil, apperr.Storage("decode cached membership", err)
		}
		a.Membership = &m
	}
	return &a, nil
}

// SaveAuth inserts or replaces the session of deviceID.
func (r *PostgresAuthRepository) SaveAuth(ctx context.Context, deviceID string, a *models.PatreonAuth) error {
	var membership []byte
	if a.Membership != nil {
		b, err := json.Marshal(a.Membership)
		if err != nil {
			return apperr.Storage("encode membership", err)
		}
		membership = b
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO patreon_auth (device_id, access_token, refresh_token, expires_at, user_email,
		                          user_name, user_id, authenticated_at, refreshed_at, membership,
		                          membership_checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (device_id) DO UPDATE SET
		    access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    user_email = EXCLUDED.user_email,
		    user_name = EXCLUDED.user_name,
		    user_id = EXCLUDED.user_id,
		    authenticated_at = EXCLUDED.authenticated_at,
		    refreshed_at = EXCLUDED.refreshed_at,
		    membership = EXCLUDED.membership,
		    membership_checked_at = EXCLUDED.membership_checked_at`,
		deviceID, a.AccessToken, a.RefreshToken, a.ExpiresAt, a.UserEmail,
		a.UserName, a.UserID, a.AuthenticatedAt, nullTime(a.RefreshedAt), membership,
		nullTime(a.MembershipCheckedAt),
	)
	if err != nil {
		return apperr.Storage("save patreon session", err)
	}
	return nil
}

// DeleteAuth removes the session of deviceID. Deleting a missing session is not an error.
func (r *PostgresAuthRepository) DeleteAuth(ctx context.Context, deviceID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM patreon_auth WHERE device_id = $1`, deviceID); err != nil {
		return apperr.Storage("delete patreon session", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
