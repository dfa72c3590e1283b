package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/exchangecore/matchkernel/internal/broadcast"
	"github.com/exchangecore/matchkernel/internal/core"
	"github.com/exchangecore/matchkernel/internal/events"
	"github.com/exchangecore/matchkernel/internal/obsmetrics"
	"github.com/exchangecore/matchkernel/internal/persistence"
	"github.com/exchangecore/matchkernel/internal/registry"
	"github.com/exchangecore/matchkernel/internal/risk"
)

// Server is the HTTP front-end for the matching core: it decodes
// requests, authenticates and validates them, calls into the registry,
// and translates results into HTTP responses and broadcast events.
// Grounded on the teacher's internal/api/server.go (same responsibility
// split, same writeJSON helper), rewired onto gorilla/mux and the
// registry/risk/events/broadcast packages this spec adds.
type Server struct {
	registry    *registry.Registry
	auth        *Authenticator
	credentials *CredentialStore
	idem        *IdempotencyCache
	hub         *broadcast.Hub
	metrics     *obsmetrics.Metrics
	start       time.Time
}

// NewServer builds a Server around the supplied collaborators. idem may
// be nil, in which case idempotency checking is skipped (useful for
// tests and for deployments without Redis).
func NewServer(reg *registry.Registry, auth *Authenticator, idem *IdempotencyCache, hub *broadcast.Hub, metrics *obsmetrics.Metrics) *Server {
	return &Server{
		registry:    reg,
		auth:        auth,
		credentials: NewCredentialStore(),
		idem:        idem,
		hub:         hub,
		metrics:     metrics,
		start:       time.Now(),
	}
}

// Router builds the gorilla/mux router for this server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/wallets", s.handleRegisterWallet).Methods(http.MethodPost)
	r.HandleFunc("/v1/wallets/{wallet}/token", s.handleIssueToken).Methods(http.MethodPost)
	r.HandleFunc("/v1/markets/{market}/orders", s.authenticated(s.handleSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/v1/markets/{market}/orders/{id}", s.authenticated(s.handleReplace)).Methods(http.MethodPut)
	r.HandleFunc("/v1/markets/{market}/orders/{id}", s.authenticated(s.handleCancel)).Methods(http.MethodDelete)
	r.HandleFunc("/v1/markets/{market}/book", s.handleBook).Methods(http.MethodGet)
	r.HandleFunc("/v1/stream", s.hub.ServeHTTP)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type walletCtxKey struct{}

// authenticated wraps handler with bearer-token authentication,
// stashing the authenticated wallet in the request context.
func (s *Server) authenticated(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := s.auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), walletCtxKey{}, wallet)
		handler(w, r.WithContext(ctx))
	}
}

func walletFromContext(r *http.Request) string {
	if w, ok := r.Context().Value(walletCtxKey{}).(string); ok {
		return w
	}
	return ""
}

type tradeView struct {
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
	Sequence    uint64 `json:"sequence"`
}

func tradeViews(trades []core.Trade) []tradeView {
	out := make([]tradeView, len(trades))
	for i, t := range trades {
		out[i] = tradeView{
			BuyOrderID:  string(t.BuyID),
			SellOrderID: string(t.SellID),
			Price:       FormatPrice(t.Price),
			Quantity:    t.Quantity,
			Sequence:    t.Sequence,
		}
	}
	return out
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	wallet := walletFromContext(r)

	var reservedKey string
	if s.idem != nil {
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			if err := s.idem.Reserve(r.Context(), key); err != nil {
				if errors.Is(err, ErrDuplicateRequest) {
					writeError(w, http.StatusConflict, "duplicate request")
					return
				}
				log.Error().Err(err).Msg("ingress: idempotency check failed")
			} else {
				reservedKey = key
			}
		}
	}
	reject := func(message string) {
		if reservedKey != "" {
			if err := s.idem.Release(r.Context(), reservedKey); err != nil {
				log.Error().Err(err).Msg("ingress: idempotency release failed")
			}
		}
		writeError(w, http.StatusBadRequest, message)
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reject("invalid request body")
		return
	}

	order, err := req.ToOrder(market, wallet, time.Now().UnixNano())
	if err != nil {
		reject(err.Error())
		return
	}
	if err := risk.Validate(order); err != nil {
		reject(err.Error())
		return
	}

	start := time.Now()
	trades := s.registry.Submit(order)
	s.metrics.AddLatency(time.Since(start).Microseconds())
	s.metrics.IncOrdersSubmitted()
	s.metrics.AddTrades(int64(len(trades)))
	if order.Residual > 0 {
		s.metrics.IncOrdersInBook()
	}

	now := time.Now().UnixNano()
	for _, ev := range events.FromTrades(trades, now) {
		s.hub.Publish(ev)
	}
	if order.Residual > 0 {
		s.hub.Publish(events.OrderAdded(market, order.ID, now))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":          string(order.ID),
		"residual_quantity": order.Residual,
		"trades":            tradeViews(trades),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	market, id := vars["market"], vars["id"]

	if err := s.registry.Cancel(market, core.OrderID(id)); err != nil {
		switch {
		case errors.Is(err, registry.ErrMarketNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, registry.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.metrics.IncOrdersCancelled()
	s.metrics.DecOrdersInBook()
	s.hub.Publish(events.OrderCancelled(market, core.OrderID(id), time.Now().UnixNano()))
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": "CANCELLED"})
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	market, id := vars["market"], vars["id"]
	wallet := walletFromContext(r)

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OrderID = id

	order, err := req.ToOrder(market, wallet, time.Now().UnixNano())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := risk.Validate(order); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.registry.Replace(order)
	if err != nil {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}

	s.metrics.IncOrdersReplaced()
	s.metrics.AddTrades(int64(len(trades)))

	now := time.Now().UnixNano()
	for _, ev := range events.FromTrades(trades, now) {
		s.hub.Publish(ev)
	}
	s.hub.Publish(events.OrderReplaced(market, core.OrderID(id), order.ID, now))

	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":          string(order.ID),
		"residual_quantity": order.Residual,
		"trades":            tradeViews(trades),
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	depth := 0
	if v := r.URL.Query().Get("depth"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			depth = n
		}
	}

	eng, ok := s.registry.GetMarket(market)
	if !ok {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	bids, asks := eng.Book().Depth(depth)
	writeJSON(w, http.StatusOK, map[string]any{
		"market": market,
		"bids":   bids,
		"asks":   asks,
	})
}

type walletCredentials struct {
	Wallet string `json:"wallet"`
	Secret string `json:"secret"`
}

// handleRegisterWallet onboards a wallet: it hashes the presented
// secret with CredentialStore and stores it, never the plaintext.
func (s *Server) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	var creds walletCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Wallet == "" || creds.Secret == "" {
		writeError(w, http.StatusBadRequest, "wallet and secret are required")
		return
	}

	if err := s.credentials.Register(creds.Wallet, creds.Secret); err != nil {
		if errors.Is(err, ErrWalletExists) {
			writeError(w, http.StatusConflict, "wallet already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"wallet": creds.Wallet, "status": "REGISTERED"})
}

// handleIssueToken verifies a wallet's secret against its stored hash
// and, on success, mints the bearer token the other routes require.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.credentials.Verify(wallet, body.Secret); err != nil {
		writeError(w, http.StatusUnauthorized, "wrong wallet or secret")
		return
	}

	token, err := s.auth.IssueToken(wallet, time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": time.Since(s.start).Seconds(),
		"metrics":        s.metrics.Snapshot(),
	})
}

// SnapshotNow writes the registry's current state to path, for a
// manual or scheduled admin-triggered snapshot.
func (s *Server) SnapshotNow(path string) error {
	return persistence.SaveToFile(s.registry, path)
}

// NewOrderID mints a fresh order id for callers that don't supply
// their own, using the same generator the teacher's API layer does.
func NewOrderID() core.OrderID {
	return core.OrderID(uuid.New().String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
