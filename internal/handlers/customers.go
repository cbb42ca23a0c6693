package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thundershare/backend/internal/customers"
	"github.com/thundershare/backend/internal/logging"
	"github.com/thundershare/backend/internal/models"
)

// CustomerHandler implements the account endpoints.
type CustomerHandler struct {
	Customers CustomerService
	Verifier  TokenVerifier
	Limiter   RateLimiter
}

// SignUp handles POST /api/v1/customer/signup requests.
func (h CustomerHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Customers == nil {
		logger.Error("customer service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "account services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	username, password, ok := decodeCredentials(ctx, w, r)
	if !ok {
		return
	}

	session, err := h.Customers.SignUp(ctx, username, password)
	if err != nil {
		if errors.Is(err, customers.ErrAlreadyExists) {
			logger.Warn("signup existing username", "username", username)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username already taken"})
			return
		}
		logger.Error("signup failed", "error", err, "username", username)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	setSessionCookie(w, session.Token, cookieMaxAge(session))
	respondJSON(ctx, w, http.StatusCreated, newSessionResponse(session))
}

// SignIn handles POST /api/v1/customer/signin requests.
func (h CustomerHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Customers == nil {
		logger.Error("customer service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "account services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signin") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	username, password, ok := decodeCredentials(ctx, w, r)
	if !ok {
		return
	}

	session, err := h.Customers.SignIn(ctx, username, password)
	if err != nil {
		if errors.Is(err, customers.ErrInvalidCredential) {
			logger.Warn("signin rejected", "username", username)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		logger.Error("signin failed", "error", err, "username", username)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to sign in"})
		return
	}

	setSessionCookie(w, session.Token, cookieMaxAge(session))
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(session))
}

// SignOut handles POST /api/v1/customer/signout requests.
func (h CustomerHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Customers == nil {
		logger.Error("customer service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "account services unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Verifier)
	if !ok {
		return
	}

	if err := h.Customers.SignOut(ctx, identity); err != nil {
		logger.Error("signout failed", "error", err, "customerId", identity.CustomerID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to sign out"})
		return
	}

	clearSessionCookie(w)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "signed out"})
}

// ByID handles GET /api/v1/customer/{id} requests.
func (h CustomerHandler) ByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Customers == nil {
		logger.Error("customer service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "account services unavailable"})
		return
	}

	if _, ok := requireIdentity(w, r, h.Verifier); !ok {
		return
	}

	id := r.PathValue("id")
	customer, err := h.Customers.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		logger.Error("customer lookup failed", "error", err, "customerId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load customer"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, customerResponse{
		ID:        customer.ID,
		Username:  customer.Username,
		CreatedAt: customer.CreatedAt,
	})
}

type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token      string    `json:"token"`
	CustomerID string    `json:"customerId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func newSessionResponse(session models.SessionToken) sessionResponse {
	return sessionResponse{
		Token:      session.Token,
		CustomerID: session.CustomerID,
		ExpiresAt:  session.ExpiresAt,
	}
}

func cookieMaxAge(session models.SessionToken) int {
	return int(session.ExpiresAt.Sub(session.IssuedAt) / time.Second)
}

func decodeCredentials(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, string, bool) {
	logger := logging.FromContext(ctx)

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid credential payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", "", false
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		logger.Warn("missing credentials", "username", req.Username)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return "", "", false
	}

	return req.Username, req.Password, true
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
