package interceptors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
)

// Claims are the access token claims. The user id is read from uid, falling
// back to the standard subject.
type Claims struct {
	UserID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing bearer token")

// NewAuth requires an HS256 bearer token signed with secret and stores its
// user id on the request context. Paths listed in public pass through.
func NewAuth(secret []byte, public ...string) Middleware {
	skip := make(map[string]struct{}, len(public))
	for _, p := range public {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := ParseUserID(r.Header.Get("Authorization"), secret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="smart-import"`)
				writeError(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
		})
	}
}

// ParseUserID validates an Authorization header value and returns the
// token's user id.
func ParseUserID(header string, secret []byte) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return uuid.Nil, errMissingToken
	}
	if len(secret) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no signing secret configured", common.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: token has no valid user id", common.ErrUnauthenticated)
	}
	return id, nil
}
