package http

import (
	"context"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/middleware"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/patreon"
)

// StateCookie mirrors the OAuth state between authorize and callback.
const StateCookie = "morpheus_oauth_state"

// PatreonService defines the OAuth operations required by PatreonHandler.
type PatreonService interface {
	AuthorizeURL(deviceID string) (authURL, state string, err error)
	HandleCallback(ctx context.Context, state, cookieState, code string) (*models.PatreonAuth, error)
	Status(ctx context.Context, deviceID string) (patreon.Status, error)
	Logout(ctx context.Context, deviceID string) error
	CheckMembership(ctx context.Context, deviceID string) (*models.Membership, error)
}

// PatreonHandler serves the Patreon OAuth flow.
type PatreonHandler struct {
	PatreonService PatreonService
	// CookiePath scopes the state cookie, normally "<prefix>/patreon".
	CookiePath string
	Log        *zap.Logger
}

var callbackPage = template.Must(template.New("callback").Parse(`<html>
<head>
<title>{{if .OK}}Patreon Connected{{else}}Patreon Error{{end}}</title>
<style>
body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background: #1a1a2e; color: #eee; }
.success { color: #4CAF50; font-size: 48px; }
p { color: #aaa; }
</style>
</head>
<body>
{{if .OK}}
<div class="success">&#10004;</div>
<h2>Patreon Connected Successfully!</h2>
<p>Welcome, {{.Name}}!</p>
<p>You can close this window and return to ComfyUI.</p>
<script>
if (window.opener) { window.opener.postMessage({type: 'patreon_oauth_complete', success: true}, '*'); }
setTimeout(function(){ window.close() }, 2000);
</script>
{{else}}
<h2>Error</h2>
<p>{{.Message}}</p>
{{end}}
</body>
</html>
`))

type callbackView struct {
	OK      bool
	Name    string
	Message string
}

func (h *PatreonHandler) renderCallback(w http.ResponseWriter, v callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, v); err != nil && h.Log != nil {
		h.Log.Error("failed to render callback page", zap.Error(err))
	}
}

// Authorize handles GET /patreon/authorize. It sets the state cookie and
// redirects to Patreon.
func (h *PatreonHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.PatreonService.AuthorizeURL(middleware.GetDeviceIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     h.CookiePath,
		MaxAge:   int(patreon.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /patreon/callback and answers with an HTML page.
func (h *PatreonHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.renderCallback(w, callbackView{Message: "Authorization failed: " + e})
		return
	}

	var cookieState string
	if c, err := r.Cookie(StateCookie); err == nil {
		cookieState = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Path: h.CookiePath, MaxAge: -1, HttpOnly: true})

	a, err := h.PatreonService.HandleCallback(r.Context(), q.Get("state"), cookieState, q.Get("code"))
	if err != nil {
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError && h.Log != nil {
			h.Log.Error("patreon callback failed", zap.Error(err))
		}
		h.renderCallback(w, callbackView{Message: apperr.Message(err)})
		return
	}

	name := a.UserName
	if name == "" {
		name = a.UserEmail
	}
	if name == "" {
		name = "Patron"
	}
	h.renderCallback(w, callbackView{OK: true, Name: name})
}

// Status handles GET /patreon/status.
func (h *PatreonHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.PatreonService.Status(r.Context(), middleware.GetDeviceIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Logout handles POST /patreon/logout.
func (h *PatreonHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.PatreonService.Logout(r.Context(), middleware.GetDeviceIDFromContext(r.Context())); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Logged out from Patreon"})
}

// CheckMembership handles GET /patreon/check_membership.
func (h *PatreonHandler) CheckMembership(w http.ResponseWriter, r *http.Request) {
	m, err := h.PatreonService.CheckMembership(r.Context(), middleware.GetDeviceIDFromContext(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, m)
	case apperr.Is(err, apperr.KindUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"is_patron":    false,
			"error":        apperr.Message(err),
			"needs_reauth": true,
		})
	case apperr.Is(err, apperr.KindNetwork):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"is_patron": false,
			"error":     apperr.Message(err),
			"offline":   true,
		})
	default:
		writeError(w, r, h.Log, err)
	}
}
