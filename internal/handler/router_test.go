package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/handler"
	"github.com/boddenberg/spendlog/internal/infra/cache"
	"github.com/boddenberg/spendlog/internal/infra/export"
	"github.com/boddenberg/spendlog/internal/infra/files"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/infra/sqlite"
	"github.com/boddenberg/spendlog/internal/service"

	"go.uber.org/zap"
)

// tokenVerifier maps bearer tokens to user ids.
type tokenVerifier map[string]string

func (v tokenVerifier) VerifyToken(_ context.Context, token string) (*domain.AuthUser, error) {
	id, ok := v[token]
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "Invalid authentication credentials"}
	}
	return &domain.AuthUser{ID: id, Email: id + "@example.com"}, nil
}

type testServer struct {
	handler http.Handler
	upload  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "spendlog.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploadDir := t.TempDir()
	disk, err := files.NewDisk(uploadDir, logger)
	if err != nil {
		t.Fatalf("disk: %v", err)
	}

	local := cache.New[service.CachedToken](time.Minute)
	t.Cleanup(local.Close)

	svc := handler.Services{
		Ledger:   service.NewLedgerService(store, metrics, logger),
		Accounts: service.NewAccountService(store, nil, nil, metrics, logger),
		Auth:     service.NewAuthService(tokenVerifier{"alice-token": "alice", "bob-token": "bob"}, local, metrics, logger),
		Files:    service.NewFileService(disk, 2, metrics, logger),
		Store:    store,
	}
	cfg := handler.Config{Version: "test", UploadDir: uploadDir, WebhookSecret: "s3cret"}
	return &testServer{handler: handler.NewRouter(svc, cfg, metrics, logger), upload: uploadDir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["detail"]
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Config{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_WithStore(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	h := decode[domain.HealthStatus](t, rec)
	if h.Status != "healthy" || len(h.Services) != 2 {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Config{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Config{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAPIInfo(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/", "", nil)
	info := decode[domain.APIInfo](t, rec)
	if info.Name != "SpendLog API" || info.Version != "test" {
		t.Errorf("unexpected info %+v", info)
	}
}

// ============================================================
// Auth
// ============================================================

func TestAuth_NoServiceIs503(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Config{}, observability.NewMetrics(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/receipts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"unknown token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/receipts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if detail(t, rec) == "" {
				t.Error("expected a detail message")
			}
		})
	}
}

// ============================================================
// Receipts
// ============================================================

func TestReceipts_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{
		"merchant_name": "Cafe",
		"date":          "2024-03-10",
		"items":         []map[string]any{{"name": "Coffee", "price": 3.5, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Receipt](t, rec)
	if created.TotalAmount != 7 || created.Currency != domain.CurrencyTND || created.Category != domain.CategoryUncategorized {
		t.Errorf("unexpected receipt %+v", created)
	}

	path := "/receipts/" + itoa(created.ID)
	if rec := s.do(t, http.MethodGet, path, "bob-token", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected another user's receipt to be 404, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, path, "alice-token", map[string]any{"merchant_name": "Corner Cafe"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Receipt](t, rec); got.MerchantName != "Corner Cafe" || len(got.Items) != 1 {
		t.Errorf("unexpected update %+v", got)
	}

	rec = s.do(t, http.MethodGet, "/receipts?merchant_name=corner&limit=5", "alice-token", nil)
	page := decode[domain.Page[domain.Receipt]](t, rec)
	if page.Total != 1 || page.Limit != 5 || page.Skip != 0 || len(page.Items) != 1 {
		t.Errorf("unexpected page %+v", page)
	}

	if rec := s.do(t, http.MethodDelete, path, "alice-token", nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, path, "alice-token", nil)
	if rec.Code != http.StatusNotFound || detail(t, rec) == "" {
		t.Errorf("expected 404 with detail, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestReceipts_ListValidation(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"limit=0", "limit=101", "skip=-1", "sort_by=password", "order=up", "limit=ten", "start_date=03/10/2024"} {
		t.Run(q, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/receipts?"+q, "alice-token", nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestReceipts_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestReceipts_PayPendingItems(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/items/pending", "alice-token", map[string]any{"name": " Milk "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	pending := decode[domain.Item](t, rec)
	if pending.Name != "Milk" || pending.Quantity != 1 || pending.Price != 0 {
		t.Errorf("unexpected pending item %+v", pending)
	}

	rec = s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{
		"merchant_name":    "Market",
		"date":             "2024-03-11",
		"items":            []map[string]any{{"name": "Milk", "price": 1.2, "quantity": 1}},
		"pending_item_ids": []int64{pending.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/items/pending", "alice-token", nil)
	if page := decode[domain.Page[domain.Item]](t, rec); page.Total != 0 {
		t.Errorf("expected the pending item to be gone, got %+v", page)
	}
}

func TestItems_Routes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{"merchant_name": "Shop", "date": "2024-01-02"})
	receipt := decode[domain.Receipt](t, rec)

	rec = s.do(t, http.MethodPost, "/receipts/"+itoa(receipt.ID)+"/items", "alice-token", map[string]any{"name": "Pen", "price": 2, "quantity": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	item := decode[domain.Item](t, rec)

	itemPath := "/receipts/items/" + itoa(item.ID)
	if rec := s.do(t, http.MethodGet, itemPath, "bob-token", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPut, itemPath, "alice-token", map[string]any{"name": "Pencil", "price": 1, "quantity": 1})
	if got := decode[domain.Item](t, rec); got.Name != "Pencil" {
		t.Errorf("unexpected item %+v", got)
	}

	rec = s.do(t, http.MethodGet, "/receipts/"+itoa(receipt.ID)+"/items", "alice-token", nil)
	if items := decode[[]domain.Item](t, rec); len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
	if rec := s.do(t, http.MethodDelete, itemPath, "alice-token", nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// ============================================================
// Income, settings, dashboard, export
// ============================================================

func TestIncome_Routes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/income", "alice-token", map[string]any{
		"source": "ACME", "amount": 1500, "date": "2024-03-01", "category": "Salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	inc := decode[domain.Income](t, rec)

	rec = s.do(t, http.MethodPatch, "/income/"+itoa(inc.ID), "alice-token", map[string]any{"amount": 1600})
	if got := decode[domain.Income](t, rec); got.Amount != 1600 || got.Source != "ACME" {
		t.Errorf("unexpected patch result %+v", got)
	}

	if rec := s.do(t, http.MethodGet, "/income?category=Lottery", "alice-token", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown category, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/income/"+itoa(inc.ID), "alice-token", nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestSettings_Routes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/settings", "alice-token", nil)
	if got := decode[domain.Settings](t, rec); got.Currency != domain.CurrencyTND {
		t.Errorf("expected TND default, got %+v", got)
	}
	rec = s.do(t, http.MethodPatch, "/settings", "alice-token", map[string]any{"currency": "EUR"})
	if got := decode[domain.Settings](t, rec); got.Currency != domain.CurrencyEUR {
		t.Errorf("expected EUR, got %+v", got)
	}
	if rec := s.do(t, http.MethodPatch, "/settings", "alice-token", map[string]any{"currency": "GBP"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDashboard_Route(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{"merchant_name": "A", "date": "2024-03-10", "total_amount": 30, "category": "Food"})
	s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{"merchant_name": "B", "date": "2024-03-12", "total_amount": 10, "category": "Bills"})

	rec := s.do(t, http.MethodGet, "/receipts/dashboard/stats?start_date=2024-03-01&end_date=2024-03-31", "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	data := decode[domain.DashboardData](t, rec)
	if data.Stats.TotalReceipts != 2 || data.Stats.TotalSpent != 40 {
		t.Errorf("unexpected stats %+v", data.Stats)
	}

	rec = s.do(t, http.MethodGet, "/receipts/dashboard/stats?start_date=2024-04-01&end_date=2024-03-01", "alice-token", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted range, got %d", rec.Code)
	}
}

func TestExport_Route(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/receipts", "alice-token", map[string]any{"merchant_name": "A", "date": "2024-03-10", "total_amount": 30})

	rec := s.do(t, http.MethodGet, "/receipts/export?start_date=2024-03-01", "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "spendlog_report_2024-03-01_today.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a workbook body")
	}
}

// ============================================================
// Uploads
// ============================================================

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploads_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartBody(t, "receipt.PNG", "png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	res := decode[domain.UploadResult](t, rec)
	if !strings.HasPrefix(res.URL, "/uploads/") || !strings.HasSuffix(res.URL, ".png") {
		t.Errorf("unexpected url %q", res.URL)
	}

	get := httptest.NewRecorder()
	s.handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, res.URL, nil))
	if get.Code != http.StatusOK || get.Body.String() != "png-bytes" {
		t.Errorf("expected the static file, got %d %q", get.Code, get.Body.String())
	}

	listing := httptest.NewRecorder()
	s.handler.ServeHTTP(listing, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	if listing.Code != http.StatusNotFound {
		t.Errorf("expected no directory listing, got %d", listing.Code)
	}

	if rec := s.do(t, http.MethodDelete, "/receipts/upload/"+res.Filename, "alice-token", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/receipts/upload/"+res.Filename, "alice-token", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/receipts/upload/..%2Fsecret.png", "alice-token", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for path escape, got %d", rec.Code)
	}
}

func TestUploads_RejectsExtension(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, "notes.txt", "hi")
	req := httptest.NewRequest(http.MethodPost, "/receipts/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// ============================================================
// Users & webhook
// ============================================================

func TestUsers_CallerOnly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/users", "alice-token", map[string]any{"id": "alice", "email": "alice@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/users", "bob-token", map[string]any{"id": "alice", "email": "x@example.com"}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/users/alice", "bob-token", nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, "/users/alice", "alice-token", map[string]any{"full_name": "Alice A"})
	if got := decode[domain.User](t, rec); got.FullName != "Alice A" || got.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", got)
	}

	if rec := s.do(t, http.MethodDelete, "/users/alice", "alice-token", nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/users/alice", "alice-token", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAuthWebhook(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]any{
		"type":  "INSERT",
		"table": "users",
		"record": map[string]any{
			"id":                 "carol",
			"email":              "carol@example.com",
			"raw_user_meta_data": map[string]any{"full_name": "Carol"},
		},
	}

	post := func(secret string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(payload)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/auth", &buf)
		if secret != "" {
			req.Header.Set(handler.WebhookSecretHeader, secret)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post("wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad secret, got %d", rec.Code)
	}
	rec := post("s3cret")
	if got := decode[domain.WebhookResult](t, rec); got.Status != domain.WebhookCreated || got.UserID != "carol" {
		t.Errorf("unexpected result %+v", got)
	}
	rec = post("s3cret")
	if got := decode[domain.WebhookResult](t, rec); got.Status != domain.WebhookExists {
		t.Errorf("expected exists, got %+v", got)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
