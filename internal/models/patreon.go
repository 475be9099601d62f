package models

import "time"

// PatreonAuth is the stored OAuth session of one device.
type PatreonAuth struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	ExpiresAt       time.Time `json:"expires_at"`
	UserEmail       string    `json:"user_email"`
	UserName        string    `json:"user_name"`
	UserID          string    `json:"user_id"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	RefreshedAt     time.Time `json:"refreshed_at,omitzero"`

	// Membership is the result of the last successful membership check.
	Membership          *Membership `json:"membership,omitempty"`
	MembershipCheckedAt time.Time   `json:"membership_checked_at,omitzero"`
}

// Expired reports whether the access token expired at now.
func (a *PatreonAuth) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Membership describes a user's standing in the campaign.
type Membership struct {
	IsPatron      bool      `json:"is_patron"`
	PatronStatus  string    `json:"patron_status,omitempty"`
	CampaignID    string    `json:"campaign_id,omitempty"`
	TierID        string    `json:"tier_id,omitempty"`
	EntitledCents int       `json:"entitled_cents"`
	UserEmail     string    `json:"user_email"`
	UserName      string    `json:"user_name"`
	CheckedAt     time.Time `json:"checked_at"`

	// Flags set when a cached membership is served instead of a live one.
	Cached       bool `json:"cached,omitempty"`
	OfflineMode  bool `json:"offline_mode,omitempty"`
	TokenExpired bool `json:"token_expired,omitempty"`
	NeedsReauth  bool `json:"needs_reauth,omitempty"`
}
