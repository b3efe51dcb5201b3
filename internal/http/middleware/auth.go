package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/localmarket/tokens-backend/internal/auth"
)

const (
	userIDKey   = "userID"
	identityKey = "identity"
)

// Authenticate resolves the Authorization bearer through r and stores the
// identity in the Gin context ("userID" and IdentityFrom). Requests without a
// resolvable credential are answered 401 and never reach the handler.
func Authenticate(r auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerFromHeader(c.GetHeader("Authorization"))
		if !ok {
			AbortError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		id, err := r.Resolve(c.Request.Context(), token)
		if err != nil || id.Zero() {
			lg := LoggerFrom(c)
			if err != nil && !errors.Is(err, auth.ErrUnauthorized) {
				lg.Warn().Err(err).Msg("identity resolution failed")
			}
			AbortError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		c.Set(userIDKey, id.ID)
		c.Set(identityKey, id)
		setLogger(c, LoggerFrom(c).With().Str("user_id", id.ID).Logger())
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && !id.Zero()
}

// UserIDFrom returns the authenticated user id or "".
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}
