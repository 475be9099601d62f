// Package access decides whether a device may browse the remote catalog.
package access

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/metrics"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

const (
	// DefaultMinCents is the smallest pledge, in cents, that unlocks the catalog.
	DefaultMinCents = 1500
	// CheckTimeout is the budget of one status request.
	CheckTimeout = 10 * time.Second
)

// DefaultCreators are display names that bypass the tier requirement.
var DefaultCreators = []string{"Sergio Valsecchi"}

// Config configures a Gate.
type Config struct {
	// FunctionsURL is the base URL of the identity service functions.
	FunctionsURL string
	MinCents     int
	Creators     []string
	Timeout      time.Duration
}

type statusResponse struct {
	Authenticated bool   `json:"authenticated"`
	IsPatron      bool   `json:"is_patron"`
	EntitledCents int    `json:"entitled_cents"`
	UserName      string `json:"user_name"`
}

// Gate checks the subscription status of a device with the identity service.
type Gate struct {
	client       *httpclient.Client
	functionsURL string
	minCents     int
	creators     []string
	timeout      time.Duration
	log          *zap.Logger
}

// NewGate creates a Gate. Zero config values fall back to the defaults.
func NewGate(client *httpclient.Client, cfg Config, log *zap.Logger) *Gate {
	if cfg.MinCents <= 0 {
		cfg.MinCents = DefaultMinCents
	}
	if cfg.Creators == nil {
		cfg.Creators = DefaultCreators
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = CheckTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		client:       client,
		functionsURL: strings.TrimRight(cfg.FunctionsURL, "/"),
		minCents:     cfg.MinCents,
		creators:     cfg.Creators,
		timeout:      cfg.Timeout,
		log:          log,
	}
}

// MinCents returns the configured tier requirement.
func (g *Gate) MinCents() int {
	return g.minCents
}

// Check asks the identity service about deviceID. It never fails: any
// error denies access.
func (g *Gate) Check(ctx context.Context, deviceID string) models.AccessDecision {
	deny := models.AccessDecision{TierRequirement: g.minCents}
	if deviceID == "" {
		metrics.AccessChecks.WithLabelValues("denied").Inc()
		return deny
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := g.functionsURL + "/patreon-status?" + url.Values{"device_id": {deviceID}}.Encode()
	var st statusResponse
	if err := g.client.GetJSON(ctx, endpoint, &st); err != nil {
		g.log.Warn("patreon status check failed", zap.String("device_id", deviceID), zap.Error(err))
		metrics.AccessChecks.WithLabelValues("error").Inc()
		return deny
	}

	d := g.decide(st)
	verdict := "denied"
	if d.Authenticated {
		verdict = "granted"
	}
	metrics.AccessChecks.WithLabelValues(verdict).Inc()
	return d
}

func (g *Gate) decide(st statusResponse) models.AccessDecision {
	isCreator := slices.Contains(g.creators, st.UserName)
	tierMet := isCreator || (st.IsPatron && st.EntitledCents >= g.minCents)
	return models.AccessDecision{
		Authenticated:   st.Authenticated && tierMet,
		TierMet:         tierMet,
		IsCreator:       isCreator,
		IsPatron:        st.IsPatron,
		EntitledCents:   st.EntitledCents,
		TierRequirement: g.minCents,
		User:            st.UserName,
	}
}
