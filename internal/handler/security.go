package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/abstore/internal/domain/auth"
)

// HeaderAPIKey carries the admin API key.
const HeaderAPIKey = "api_key"

// errUnauthorized is answered with 401.
var errUnauthorized = errors.New("Not authorized, invalid API key")

// RequireAdmin authenticates requests by the HMAC-SHA256 of their api_key
// header and requires the admin scope.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAPIKey)
		if key == "" {
			h.writeError(w, r, errUnauthorized)
			return
		}

		hash := auth.HashKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			if !errors.Is(err, auth.ErrKeyNotFound) {
				zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
			}
			h.writeError(w, r, errUnauthorized)
			return
		}

		// The lookup matched on the hash; compare again in constant time in
		// case the store matched loosely.
		if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 || !info.HasScope(auth.ScopeAdmin) {
			h.writeError(w, r, errUnauthorized)
			return
		}

		lg := zctx.From(r.Context()).With(zap.String("api_key", info.Name))
		ctx := zctx.Base(r.Context(), lg)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
