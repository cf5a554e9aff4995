package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"almacen/backend/internal/cache"
	"almacen/backend/internal/service"
	"almacen/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, t.TempDir(), 5*time.Second)
	auth := NewAuthManager("test-secret-which-is-long-enough-123", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginToken(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	return body.AccessToken
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProductsRequireAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListProductsWithToken(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
}

func TestCreateProductForbiddenForUserRole(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "vendedor", "user123")

	payload, _ := json.Marshal(map[string]any{
		"name":  "Nuevo Producto",
		"price": "1990",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStockAdjustForbiddenForUserRole(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "vendedor", "user123")

	payload, _ := json.Marshal(map[string]any{
		"product_id":  "prod-arroz-01",
		"counted_qty": 10,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/adjust", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadReceiptRejectsNonPDF(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "admin", "admin123")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "boleta.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("no soy un pdf")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadReceiptCreatesPendingReceipt(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "admin", "admin123")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "boleta.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake body")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Receipt struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"receipt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Receipt.ID == "" || body.Receipt.Status != "pending" {
		t.Fatalf("unexpected receipt: %+v", body.Receipt)
	}
}

func TestReceiptNotFound(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts/rcpt-missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUnknownReceiptActionIs404(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "admin", "admin123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/rcpt-x/explode", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSystemLogsAdminOnly(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "vendedor", "user123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system-logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRegisterSaleEndToEnd(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "vendedor", "user123")

	payload, _ := json.Marshal(map[string]any{
		"payment_method": "cash",
		"items": []map[string]any{
			{"product_id": "prod-leche-01", "quantity": 2},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Sale struct {
			ID          string `json:"id"`
			TotalAmount string `json:"total_amount"`
		} `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Sale.ID == "" {
		t.Fatalf("missing sale id")
	}
}
