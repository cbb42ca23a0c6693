package handlers

import (
	"net/http"
	"strings"

	"github.com/thundershare/backend/internal/auth"
	"github.com/thundershare/backend/internal/logging"
)

// sessionCookie carries the token for browser clients; API clients use the
// Authorization header instead. Both name the same credential.
const sessionCookie = "token"

// bearerToken extracts the session token from the Authorization header,
// falling back to the session cookie.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// requireIdentity verifies the request's token and writes a 401 response when
// it is missing, malformed, expired, or revoked. The second return value is
// false when the response has already been written.
func requireIdentity(w http.ResponseWriter, r *http.Request, verifier TokenVerifier) (auth.Identity, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if verifier == nil {
		logger.Error("token verifier unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return auth.Identity{}, false
	}

	token := bearerToken(r)
	if token == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return auth.Identity{}, false
	}

	identity, err := verifier.Verify(ctx, token)
	if err != nil {
		logger.Warn("token rejected", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return auth.Identity{}, false
	}

	return identity, true
}

func setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	setSessionCookie(w, "", -1)
}
