package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	customer := CustomerHandler{Customers: deps.Customers, Verifier: deps.Verifier, Limiter: deps.LoginLimiter}
	file := FileHandler{Files: deps.Files, Verifier: deps.Verifier}
	share := ShareHandler{Files: deps.Files, Verifier: deps.Verifier}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/customer/signup", customer.SignUp)
	mux.HandleFunc("/api/v1/customer/signin", customer.SignIn)
	mux.HandleFunc("/api/v1/customer/signout", customer.SignOut)
	mux.HandleFunc("/api/v1/customer/{id}", customer.ByID)
	mux.HandleFunc("/api/v1/file", file.Handle)
	mux.HandleFunc("/api/v1/file/{id}", file.ByID)
	mux.HandleFunc("/api/v1/file/sharing", share.Create)
	mux.HandleFunc("/api/v1/file/sharing/{id}", share.Resolve)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Customers    CustomerService
	Files        FileService
	Verifier     TokenVerifier
	LoginLimiter RateLimiter
}
