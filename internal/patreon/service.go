// Package patreon implements the Patreon OAuth flow and membership checks
// for a device.
package patreon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

const (
	DefaultAuthURL  = "https://www.patreon.com/oauth2/authorize"
	DefaultTokenURL = "https://www.patreon.com/api/oauth2/token"
	DefaultAPIURL   = "https://www.patreon.com/api/oauth2/v2"

	// defaultTokenLifetime applies when the token response carries no expiry.
	defaultTokenLifetime = 30 * 24 * time.Hour
	// membershipGrace is how long a cached membership may stand in for a
	// live check.
	membershipGrace = 7 * 24 * time.Hour

	identityFields   = "fields[user]=email,full_name"
	membershipFields = "include=memberships,memberships.campaign,memberships.currently_entitled_tiers" +
		"&fields[member]=patron_status,last_charge_status,currently_entitled_amount_cents,lifetime_support_cents" +
		"&fields[user]=email,full_name"
)

// Scopes requested from Patreon.
var Scopes = []string{"identity", "identity[email]", "campaigns.members"}

// TokenStore persists OAuth sessions by device.
type TokenStore interface {
	LoadAuth(ctx context.Context, deviceID string) (*models.PatreonAuth, error)
	SaveAuth(ctx context.Context, deviceID string, a *models.PatreonAuth) error
	DeleteAuth(ctx context.Context, deviceID string) error
}

// Config configures a Service.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CampaignID   string
	// StateSecret signs the OAuth state token.
	StateSecret []byte

	AuthURL  string
	TokenURL string
	APIURL   string
}

// Status summarizes the stored session of a device.
type Status struct {
	Authenticated   bool       `json:"authenticated"`
	Expired         bool       `json:"expired"`
	UserEmail       string     `json:"user_email,omitempty"`
	UserName        string     `json:"user_name,omitempty"`
	AuthenticatedAt *time.Time `json:"authenticated_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// Service runs the OAuth flow against Patreon.
type Service struct {
	oauth       *oauth2.Config
	apiURL      string
	campaignID  string
	stateSecret []byte
	usedStates  *cache.Cache
	store       TokenStore
	client      *httpclient.Client
	log         *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(cfg Config, store TokenStore, client *httpclient.Client, opts ...Option) *Service {
	s := &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, DefaultAuthURL),
				TokenURL:  orDefault(cfg.TokenURL, DefaultTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:      strings.TrimRight(orDefault(cfg.APIURL, DefaultAPIURL), "/"),
		campaignID:  cfg.CampaignID,
		stateSecret: cfg.StateSecret,
		usedStates:  cache.New(StateTTL, time.Minute),
		store:       store,
		client:      client,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Configured reports whether client credentials and a state secret are set.
func (s *Service) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && len(s.stateSecret) > 0
}

func (s *Service) notConfigured() error {
	return apperr.New(apperr.KindInternal, "Patreon OAuth not configured")
}

// AuthorizeURL returns the provider URL a device should be redirected to
// and the signed state that must come back with the callback.
func (s *Service) AuthorizeURL(deviceID string) (authURL, state string, err error) {
	if !s.Configured() {
		return "", "", s.notConfigured()
	}
	state, err = s.signState(deviceID)
	if err != nil {
		return "", "", err
	}
	return s.oauth.AuthCodeURL(state), state, nil
}

func (s *Service) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client.HTTPClient())
}

// HandleCallback validates state against the cookie copy, exchanges code for
// tokens and stores the session of the device named in the state.
func (s *Service) HandleCallback(ctx context.Context, state, cookieState, code string) (*models.PatreonAuth, error) {
	if !s.Configured() {
		return nil, s.notConfigured()
	}
	if state == "" || state != cookieState {
		return nil, apperr.Security("invalid state parameter")
	}
	claims, err := s.consumeState(state)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, apperr.InvalidArgument("no authorization code received")
	}

	tok, err := s.oauth.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "token exchange failed", err)
	}

	now := s.now()
	a := &models.PatreonAuth{
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		ExpiresAt:       tokenExpiry(tok, now),
		AuthenticatedAt: now,
	}

	var doc identityDocument
	if err := s.client.GetJSON(ctx, s.apiURL+"/identity?"+identityFields, &doc, httpclient.WithBearer(tok.AccessToken)); err != nil {
		s.log.Warn("failed to fetch patreon identity", zap.Error(err))
	} else {
		a.UserID = doc.Data.ID
		a.UserEmail = doc.Data.Attributes.Email
		a.UserName = doc.Data.Attributes.FullName
	}

	if err := s.store.SaveAuth(ctx, claims.DeviceID, a); err != nil {
		return nil, err
	}
	s.log.Info("patreon connected", zap.String("device_id", claims.DeviceID), zap.String("user_id", a.UserID))
	return a, nil
}

func tokenExpiry(tok *oauth2.Token, now time.Time) time.Time {
	if tok.Expiry.IsZero() {
		return now.Add(defaultTokenLifetime)
	}
	return tok.Expiry
}

// Status reports the stored session of deviceID.
func (s *Service) Status(ctx context.Context, deviceID string) (Status, error) {
	a, err := s.store.LoadAuth(ctx, deviceID)
	if apperr.Is(err, apperr.KindNotFound) {
		return Status{Message: "Not connected to Patreon"}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{
		Authenticated:   true,
		Expired:         a.Expired(s.now()),
		UserEmail:       a.UserEmail,
		UserName:        a.UserName,
		AuthenticatedAt: &a.AuthenticatedAt,
		ExpiresAt:       &a.ExpiresAt,
	}, nil
}

// Logout forgets the session of deviceID.
func (s *Service) Logout(ctx context.Context, deviceID string) error {
	return s.store.DeleteAuth(ctx, deviceID)
}

// CheckMembership asks Patreon whether the device's user is an active
// patron. An expired token is refreshed first. When Patreon cannot be
// reached a membership checked within the last seven days is served with
// the cached flags set.
func (s *Service) CheckMembership(ctx context.Context, deviceID string) (*models.Membership, error) {
	a, err := s.store.LoadAuth(ctx, deviceID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("not authenticated with Patreon")
	}
	if err != nil {
		return nil, err
	}
	if a.AccessToken == "" {
		return nil, apperr.Unauthorized("no access token available")
	}

	if a.Expired(s.now()) {
		if err := s.refresh(ctx, deviceID, a); err != nil {
			s.log.Warn("patreon token refresh failed", zap.String("device_id", deviceID), zap.Error(err))
			if m := s.cachedMembership(a); m != nil {
				m.Cached, m.OfflineMode, m.TokenExpired, m.NeedsReauth = true, true, true, true
				return m, nil
			}
			return nil, apperr.Unauthorized("token expired and refresh failed, please reconnect with Patreon")
		}
	}

	var doc identityDocument
	err = s.client.GetJSON(ctx, s.apiURL+"/identity?"+membershipFields, &doc, httpclient.WithBearer(a.AccessToken))
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, apperr.Wrap(apperr.KindInternal,
				fmt.Sprintf("failed to fetch Patreon identity: %d", statusErr.StatusCode), err)
		}
		s.log.Warn("patreon unreachable", zap.Error(err))
		if m := s.cachedMembership(a); m != nil {
			m.Cached, m.OfflineMode = true, true
			return m, nil
		}
		return nil, apperr.Network("network unavailable and no valid cached membership", err)
	}

	now := s.now()
	m := &models.Membership{
		UserEmail: a.UserEmail,
		UserName:  a.UserName,
		CheckedAt: now,
	}
	if member, ok := doc.activeMember(s.campaignID); ok {
		m.IsPatron = true
		m.PatronStatus = member.Attributes.PatronStatus
		m.CampaignID = member.Relationships.Campaign.Data.ID
		m.EntitledCents = member.Attributes.CurrentlyEntitledAmountCents
		if tiers := member.Relationships.CurrentlyEntitledTiers.Data; len(tiers) > 0 {
			m.TierID = tiers[0].ID
		}
	}

	stored := *m
	a.Membership = &stored
	a.MembershipCheckedAt = now
	if err := s.store.SaveAuth(ctx, deviceID, a); err != nil {
		s.log.Warn("failed to cache patreon membership", zap.Error(err))
	}
	return m, nil
}

// refresh swaps an expired access token for a new one and stores it.
func (s *Service) refresh(ctx context.Context, deviceID string, a *models.PatreonAuth) error {
	if a.RefreshToken == "" {
		return errors.New("no refresh token available")
	}
	if !s.Configured() {
		return s.notConfigured()
	}

	src := s.oauth.TokenSource(s.oauthContext(ctx), &oauth2.Token{
		RefreshToken: a.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return err
	}

	now := s.now()
	a.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		a.RefreshToken = tok.RefreshToken
	}
	a.ExpiresAt = tokenExpiry(tok, now)
	a.RefreshedAt = now
	if err := s.store.SaveAuth(ctx, deviceID, a); err != nil {
		s.log.Warn("failed to save refreshed patreon token", zap.Error(err))
	}
	return nil
}

// cachedMembership returns a copy of the stored membership when it shows an
// active patron checked within the grace period.
func (s *Service) cachedMembership(a *models.PatreonAuth) *models.Membership {
	if a.Membership == nil || !a.Membership.IsPatron || a.MembershipCheckedAt.IsZero() {
		return nil
	}
	if s.now().Sub(a.MembershipCheckedAt) >= membershipGrace {
		return nil
	}
	m := *a.Membership
	return &m
}
