package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Talents *TalentHandler
	Devices *DeviceHandler
	Patreon *PatreonHandler
}

// NewRouter constructs the HTTP handler of the service.
//
// Routes (under prefix, normally /morpheus):
//
//	GET  /device_id, /talents, /remote_talents, /schema
//	GET  /thumbnail/{talent_id}, /image/{talent_id}, /cached_image/{talent_id}
//	POST /upload (multipart)
//	POST /save_talent, /update_talent, /delete_talent, /favorite (JSON)
//	GET  /talent/{talent_id}, /select
//	GET, POST /ui_state
//	GET  /patreon/authorize, /patreon/callback, /patreon/status, /patreon/check_membership
//	POST /patreon/logout
//
// /metrics is served at the root.
//
// Middleware chain (applied in order):
//  1. RequestID: tags the request for log correlation
//  2. WithRequestLogging: logs the request and records its duration
//  3. Recoverer: turns handler panics into 500s
//  4. DeviceIdentity: resolves the calling device (prefix routes only)
func NewRouter(h Handlers, devices middleware.DeviceSource, prefix string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route(prefix, func(r chi.Router) {
		r.Use(middleware.DeviceIdentity(devices, logger))

		r.Get("/device_id", h.Devices.DeviceID)
		r.Get("/ui_state", h.Devices.GetUIState)

		r.Get("/talents", h.Talents.List)
		r.Get("/remote_talents", h.Talents.ListRemote)
		r.Get("/schema", h.Talents.Schema)
		r.Get("/thumbnail/{talent_id}", h.Talents.Thumbnail)
		r.Get("/image/{talent_id}", h.Talents.Image)
		r.Get("/cached_image/{talent_id}", h.Talents.CachedImage)
		r.Get("/talent/{talent_id}", h.Talents.Get)
		r.Get("/select", h.Talents.Select)
		r.Post("/upload", h.Talents.Upload)

		// JSON bodies only
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/save_talent", h.Talents.Save)
			r.Post("/update_talent", h.Talents.Update)
			r.Post("/delete_talent", h.Talents.Delete)
			r.Post("/favorite", h.Talents.Favorite)
			r.Post("/ui_state", h.Devices.SetUIState)
		})

		r.Route("/patreon", func(r chi.Router) {
			r.Get("/authorize", h.Patreon.Authorize)
			r.Get("/callback", h.Patreon.Callback)
			r.Get("/status", h.Patreon.Status)
			r.Post("/logout", h.Patreon.Logout)
			r.Get("/check_membership", h.Patreon.CheckMembership)
		})
	})

	return r
}
