package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/services"
)

// Options configures the API server.
type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready is consulted by /readyz. Nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	svc     *services.RoomService
	limiter *ratelimit.Limiter
	ready   func(context.Context) error
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.RoomService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:     svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ready:   opts.Ready,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealth).Methods("GET")
	router.HandleFunc("/readyz", s.handleReady).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware(handleRateLimited))

	api.HandleFunc("/members", s.handleListMembers).Methods("GET")
	api.HandleFunc("/members", s.handleAddMember).Methods("POST")
	api.HandleFunc("/members/{id}", s.handleRemoveMember).Methods("DELETE")

	api.HandleFunc("/groups", s.handleListGroups).Methods("GET")
	api.HandleFunc("/groups", s.handleCreateGroup).Methods("POST")
	api.HandleFunc("/groups/{id}", s.handleDeleteGroup).Methods("DELETE")

	api.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods("DELETE")
	api.HandleFunc("/expenses", s.handleAddExpense).Methods("POST")
	api.HandleFunc("/settlements", s.handleRecordSettlement).Methods("POST")

	api.HandleFunc("/balances", s.handleBalances).Methods("GET")
	api.HandleFunc("/settlements/plan", s.handlePlan).Methods("GET")
	api.HandleFunc("/settlements/settle-all", s.handleSettleAll).Methods("POST")

	api.HandleFunc("/reports", s.handleReport).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	var handler http.Handler = router
	handler = security.Headers(security.APIHeadersConfig())(handler)
	handler = corsHandler.Handler(handler)
	handler = log.Middleware(opts.Logger, requestID)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, ratelimit.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
