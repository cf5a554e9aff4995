package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"almacen/backend/internal/domain"
	"almacen/backend/internal/service"
	"almacen/backend/internal/store"
)

const maxUploadBytes = 16 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "user", "admin"))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, "user", "admin"))

	mux.HandleFunc("/api/v1/receipts", a.requireAuth(a.handleReceipts, "user", "admin"))
	mux.HandleFunc("/api/v1/receipts/", a.requireAuth(a.handleReceiptActions, "user", "admin"))
	mux.HandleFunc("/api/v1/receipt-lines/", a.requireAuth(a.handleLineActions, "user", "admin"))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "user", "admin"))
	mux.HandleFunc("/api/v1/stock/adjust", a.requireAuth(a.handleStockAdjust, "admin"))
	mux.HandleFunc("/api/v1/stock/movements", a.requireAuth(a.handleStockMovements, "user", "admin"))

	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, "user", "admin"))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, "admin"))
	mux.HandleFunc("/api/v1/system-logs", a.requireAuth(a.handleSystemLogs, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/products/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown product path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleReceipts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
		receipts, err := a.service.ListReceipts(r.Context(), status, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"receipts": receipts})
	case http.MethodPost:
		a.handleReceiptUpload(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("expected multipart form with a file field"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer func() { _ = file.Close() }()

	receipt, err := a.service.UploadReceipt(r.Context(), header.Filename, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"receipt": receipt})
}

func (a *API) handleReceiptActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, errors.New("unknown receipt path"))
		return
	}

	receiptID := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		view, err := a.service.GetReceipt(r.Context(), receiptID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	switch parts[1] {
	case "process":
		result, err := a.service.ProcessReceipt(r.Context(), receiptID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "reprocess":
		result, err := a.service.ReprocessReceipt(r.Context(), receiptID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "validate":
		receipt, err := a.service.ValidateReceipt(r.Context(), receiptID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"receipt": receipt})
	case "apply":
		resp, err := a.service.ApplyToInventory(r.Context(), receiptID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown receipt action"))
	}
}

func (a *API) handleLineActions(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/receipt-lines/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown line path"))
		return
	}
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.LineCorrections
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	line, err := a.service.ValidateLine(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"line": line})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
		sales, err := a.service.ListSales(r.Context(), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.RegisterSale(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.StockAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	movement, err := a.service.AdjustStock(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movement": movement})
}

func (a *API) handleStockMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	movements, err := a.service.ListStockMovements(r.Context(), productID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := a.service.ListCategories(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.service.ListUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req domain.UserCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.service.CreateUser(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 1000)
	logs, err := a.service.ListSystemLogs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var applyErr *service.ApplyError

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &applyErr):
		writeError(w, http.StatusConflict, err)
	case strings.Contains(err.Error(), "role required"), strings.Contains(err.Error(), "authenticated user required"):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the server log; clients get a generic message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
