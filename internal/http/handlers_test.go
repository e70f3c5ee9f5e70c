package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensify/internal/analyze"
	"expensify/internal/core"
	"expensify/internal/filestore"
	"expensify/internal/records/memory"
	"expensify/internal/services"
)

type recordingMailer struct {
	sent chan string
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string, _ []byte) error {
	m.sent <- to
	return nil
}

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Create(context.Context, core.Record) (string, error) { return "", errStoreDown }
func (failingStore) ListMonth(context.Context, core.Month) ([]core.Record, error) {
	return nil, errStoreDown
}
func (failingStore) ListAll(context.Context) ([]core.Record, error)          { return nil, errStoreDown }
func (failingStore) UpdateStatus(context.Context, string, core.Status) error { return errStoreDown }

type stubAnalyzer struct {
	ext analyze.Extraction
	err error
}

func (a stubAnalyzer) AnalyzeReceipt(context.Context, []byte, string) (analyze.Extraction, error) {
	return a.ext, a.err
}

func newTestServer(t *testing.T, mailer SummarySender) *Server {
	t.Helper()
	files, err := filestore.New(t.TempDir(), "http://localhost:8081")
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	svc := services.NewExpenseService(services.Config{
		Store: memory.New(),
		Files: files,
	})
	srv := NewServer(Options{
		Addr:      ":0",
		Service:   svc,
		Mailer:    mailer,
		UploadDir: files.Dir(),
		Version:   "test",
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func multipartBody(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "receipt.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postExpense(t *testing.T, srv *Server, image []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, image, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cf-Access-Authenticated-User-Email", "alice@example.com")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return got
}

func TestCreateExpenseHandler(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := postExpense(t, srv, []byte("receipt-bytes"), map[string]string{
		"amount":   "42,50",
		"currency": "eur",
		"date":     "2026-03-10",
		"category": "Restaurants",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeJSON(t, rec)
	if got["ok"] != true {
		t.Fatalf("expected ok=true, got %v", got)
	}
	if got["recordId"] == "" {
		t.Fatal("expected a record id")
	}
	if !strings.Contains(got["imageUrl"].(string), "/uploads/") {
		t.Fatalf("unexpected image url %v", got["imageUrl"])
	}
	if got["uploadedBy"] != "alice@example.com" {
		t.Fatalf("expected uploader from access header, got %v", got["uploadedBy"])
	}
}

func TestCreateExpenseHandlerValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		image  []byte
		fields map[string]string
	}{
		{"missing image", nil, map[string]string{"amount": "10"}},
		{"empty image", []byte{}, map[string]string{"amount": "10"}},
		{"missing amount", []byte("img"), map[string]string{}},
		{"garbage amount", []byte("img"), map[string]string{"amount": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postExpense(t, srv, tt.image, tt.fields)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeJSON(t, rec); got["ok"] != false {
				t.Fatalf("expected ok=false, got %v", got)
			}
		})
	}
}

func TestListExpensesHandler(t *testing.T) {
	srv := newTestServer(t, nil)
	month := core.CurrentMonth().String()

	same := []byte("same-receipt")
	postExpense(t, srv, same, map[string]string{"amount": "10", "date": month + "-05"})
	postExpense(t, srv, same, map[string]string{"amount": "20", "date": month + "-06"})
	postExpense(t, srv, []byte("other"), map[string]string{"amount": "30", "date": month + "-07"})

	req := httptest.NewRequest(http.MethodGet, "/api/expenses?month="+month, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Month string     `json:"month"`
		Count int        `json:"count"`
		Items []listItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Month != month || got.Count != 3 {
		t.Fatalf("expected %s with 3 items, got %s with %d", month, got.Month, got.Count)
	}

	dupes := 0
	for _, it := range got.Items {
		if it.DuplicateHint {
			if it.DuplicateCount != 2 {
				t.Fatalf("expected duplicate count 2, got %d", it.DuplicateCount)
			}
			dupes++
		}
	}
	if dupes != 2 {
		t.Fatalf("expected 2 flagged duplicates, got %d", dupes)
	}
}

func TestUpdateStatusHandler(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := postExpense(t, srv, []byte("img"), map[string]string{"amount": "10"})
	id := decodeJSON(t, rec)["recordId"].(string)

	body := strings.NewReader(`{"status":"Done"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/expenses/"+id+"/status", body)
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	srv.Handler.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", out.Code, out.Body.String())
	}
	if got := decodeJSON(t, out); got["status"] != "Done" {
		t.Fatalf("expected Done, got %v", got["status"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/expenses/"+id+"/status",
		strings.NewReader(`{"status":"Paid"}`))
	req.Header.Set("Content-Type", "application/json")
	out = httptest.NewRecorder()
	srv.Handler.ServeHTTP(out, req)
	if out.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", out.Code)
	}
	if got := decodeJSON(t, out); got["allowed"] == nil {
		t.Fatalf("expected allowed list in response, got %v", got)
	}
}

func TestReportHandler(t *testing.T) {
	srv := newTestServer(t, nil)
	month := core.CurrentMonth().String()

	postExpense(t, srv, []byte("a"), map[string]string{"amount": "100", "currency": "CHF", "date": month + "-03"})
	postExpense(t, srv, []byte("b"), map[string]string{"amount": "50", "currency": "CHF", "date": month + "-04"})

	req := httptest.NewRequest(http.MethodGet, "/api/expense-report?month="+month, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got reportJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Month != month {
		t.Fatalf("expected month %s, got %s", month, got.Month)
	}
	if got.Total.Count != 2 || got.Total.Gross != 150 {
		t.Fatalf("expected 2 records / 150 gross, got %d / %v", got.Total.Count, got.Total.Gross)
	}
	if _, ok := got.Currencies["CHF"]; !ok {
		t.Fatalf("expected a CHF bucket, got %v", got.Currencies)
	}
	if got.FXPolicy == "" {
		t.Fatal("expected an FX policy note")
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 detail rows, got %d", len(got.Rows))
	}
	for _, row := range got.Rows {
		if row.RecordID == "" || row.Currency != "CHF" || row.Gross == 0 {
			t.Fatalf("incomplete detail row %+v", row)
		}
	}

	// An explicitly empty status filter yields an empty report, not the default set.
	req = httptest.NewRequest(http.MethodGet, "/api/expense-report?month="+month+"&statuses=", nil)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total.Count != 0 {
		t.Fatalf("expected empty report for empty status set, got %d", got.Total.Count)
	}
}

func TestReportPDFHandler(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/expense-report.pdf?month=2026-03", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "2026-03") {
		t.Fatalf("expected month in filename, got %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF payload")
	}
}

func TestSendSummaryHandler(t *testing.T) {
	mailer := &recordingMailer{sent: make(chan string, 1)}
	srv := newTestServer(t, mailer)

	req := httptest.NewRequest(http.MethodPost, "/api/send-summary", nil)
	req.Header.Set("Cf-Access-Authenticated-User-Email", "alice@example.com")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON(t, rec); got["to"] != "alice@example.com" {
		t.Fatalf("expected recipient from access header, got %v", got["to"])
	}

	select {
	case to := <-mailer.sent:
		if to != "alice@example.com" {
			t.Fatalf("mail went to %s", to)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("summary mail was never sent")
	}
}

func TestSendSummaryHandlerUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/send-summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a mailer, got %d", rec.Code)
	}
}

func TestSeedSamplesHandler(t *testing.T) {
	srv := newTestServer(t, nil)
	month := core.CurrentMonth().String()

	req := httptest.NewRequest(http.MethodPost, "/api/seed-samples?count=3&month="+month, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeJSON(t, rec)
	if got["created"] != float64(3) {
		t.Fatalf("expected 3 created, got %v", got["created"])
	}
}

func TestReportPDFHandlerUpstreamFailure(t *testing.T) {
	svc := services.NewExpenseService(services.Config{Store: failingStore{}})
	srv := NewServer(Options{Addr: ":0", Service: svc, Version: "test"})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/api/expense-report.pdf?month=2026-03", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the store is down, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected a PDF error body, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF payload")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/expense-report?month=2026-03", nil)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 from the JSON report, got %d", rec.Code)
	}
}

func TestMonthParamValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{
		"/api/expenses?month=garbage",
		"/api/expense-report?month=2026-13",
		"/api/expense-report.pdf?month=03-2026",
		"/api/expense-report?m=0",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestStatusesParamHonorsConfiguredSet(t *testing.T) {
	svc := services.NewExpenseService(services.Config{
		Store:           memory.New(),
		DefaultStatuses: []core.Status{core.StatusDone, "Archived"},
	})
	srv := NewServer(Options{Addr: ":0", Service: svc, Version: "test"})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/api/expense-report?statuses=Archived,Done,Bogus", nil)
	got := srv.statusesFromRequest(req)
	want := []core.Status{"Archived", core.StatusDone}
	if len(got) != len(want) {
		t.Fatalf("statusesFromRequest() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statusesFromRequest() = %v, want %v", got, want)
		}
	}
}

func TestAnalyzeReceiptHandler(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.analyzer = stubAnalyzer{ext: analyze.Extraction{
		Name:     "Starbucks Team Lunch",
		Amount:   42.5,
		Currency: "Euro",
		Category: "Meals",
		VATRate:  8.1,
	}}

	body, contentType := multipartBody(t, []byte("receipt-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeJSON(t, rec)
	if got["name"] != "Starbucks Team Lunch" || got["category"] != "Meals" {
		t.Fatalf("unexpected extraction %v", got)
	}
	if got["vat_rate"] != 8.1 {
		t.Fatalf("expected vat_rate 8.1, got %v", got["vat_rate"])
	}

	// No image, no analysis.
	body, contentType = multipartBody(t, nil, map[string]string{"name": "x"})
	req = httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without an image, got %d", rec.Code)
	}
}

func TestAnalyzeReceiptHandlerFailure(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.analyzer = stubAnalyzer{err: errors.New("model unavailable")}

	body, contentType := multipartBody(t, []byte("receipt-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on analyzer failure, got %d", rec.Code)
	}
}

func TestAnalyzeReceiptHandlerUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)

	body, contentType := multipartBody(t, []byte("receipt-bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without an analyzer, got %d", rec.Code)
	}
}

func TestWhoamiHandler(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("X-Forwarded-User", "bob@example.com")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if got := decodeJSON(t, rec); got["email"] != "bob@example.com" {
		t.Fatalf("expected forwarded user, got %v", got["email"])
	}
}
