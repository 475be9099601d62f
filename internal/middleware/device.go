// Package middleware provides HTTP middlewares for device identity and request logging.
package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

type ctxKey string

const deviceKey ctxKey = "device"

// DeviceHeader carries the device id when it is not in the query string.
const DeviceHeader = "X-Device-ID"

// DeviceSource returns the id of the local installation.
type DeviceSource interface {
	GetOrCreate(ctx context.Context) (string, error)
}

// DeviceIdentity stores the id of the calling device in the request context.
//
// The id is taken from the device_id query parameter, then from the
// X-Device-ID header, and finally from the local device file. Malformed ids
// are ignored. When none is available the request proceeds without one and
// access checks downstream deny it.
func DeviceIdentity(local DeviceSource, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.URL.Query().Get("device_id")
			if !models.ValidID(id) {
				id = r.Header.Get(DeviceHeader)
			}
			if !models.ValidID(id) {
				id = ""
				if local != nil {
					stored, err := local.GetOrCreate(r.Context())
					if err != nil {
						log.Warn("failed to read device id", zap.Error(err))
					} else {
						id = stored
					}
				}
			}
			ctx := context.WithValue(r.Context(), deviceKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceIDFromContext extracts the device id stored by DeviceIdentity.
// Returns an empty string if not found.
func GetDeviceIDFromContext(ctx context.Context) string {
	val := ctx.Value(deviceKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
