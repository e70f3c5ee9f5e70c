package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"expensify/internal/auth"
	"expensify/internal/core"
	applog "expensify/internal/log"
	"expensify/internal/notify"
	"expensify/internal/report"
	"expensify/internal/services"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read image")
		return
	}
	if int64(len(image)) > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	var vatRate float64
	if v := strings.TrimSpace(r.FormValue("vat_rate")); v != "" {
		vatRate, _ = strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	}

	res, err := s.svc.CreateExpense(r.Context(), services.CreateExpenseInput{
		Name:          r.FormValue("name"),
		Amount:        r.FormValue("amount"),
		Currency:      r.FormValue("currency"),
		Date:          r.FormValue("date"),
		Attendees:     r.FormValue("attendees"),
		Occasion:      r.FormValue("occasion"),
		Payment:       r.FormValue("payment_method"),
		Category:      r.FormValue("category"),
		ReimburseTo:   r.FormValue("reimburse_to"),
		VATRate:       vatRate,
		UploadedBy:    auth.UserEmail(r),
		Image:         image,
		ImageFilename: header.Filename,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyImage):
			writeError(w, http.StatusBadRequest, "image is required")
		case errors.Is(err, core.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid amount")
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Create expense failed", "error", err)
			writeError(w, http.StatusBadGateway, "could not store expense")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"recordId":   res.ID,
		"imageUrl":   res.ReceiptURL,
		"imageHash":  res.ImageHash,
		"uploadedBy": res.UploadedBy,
	})
}

type listItem struct {
	RecordID       string  `json:"record_id"`
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	OriginalAmount float64 `json:"original_amount"`
	Currency       string  `json:"currency"`
	Date           string  `json:"date"`
	DateAdded      string  `json:"date_added"`
	Status         string  `json:"status"`
	Attendees      string  `json:"attendees"`
	Occasion       string  `json:"occasion"`
	Payment        string  `json:"payment"`
	Category       string  `json:"category"`
	ReimburseTo    string  `json:"reimburse_to"`
	VATRate        float64 `json:"vat_rate"`
	ReceiptURL     string  `json:"receipt_url"`
	Hash           string  `json:"hash"`
	UploadedBy     string  `json:"uploaded_by"`
	DuplicateHint  bool    `json:"duplicate_hint"`
	DuplicateCount int     `json:"duplicate_count"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listed, err := s.svc.ListExpenses(r.Context(), month)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List expenses failed", "error", err, "month", month.String())
		writeError(w, http.StatusBadGateway, "could not list expenses")
		return
	}

	items := make([]listItem, 0, len(listed))
	for _, l := range listed {
		items = append(items, listItem{
			RecordID:       l.ID,
			Name:           l.Name,
			Amount:         l.Amount.Float(),
			OriginalAmount: l.OriginalAmount.Float(),
			Currency:       l.Currency,
			Date:           l.Date.String(),
			DateAdded:      l.DateAdded.String(),
			Status:         string(l.Status),
			Attendees:      l.Attendees,
			Occasion:       l.Occasion,
			Payment:        l.Payment,
			Category:       l.Category,
			ReimburseTo:    l.ReimburseTo,
			VATRate:        l.VATRate,
			ReceiptURL:     l.ReceiptURL,
			Hash:           l.ImageHash,
			UploadedBy:     l.UploadedBy,
			DuplicateHint:  l.DuplicateHint,
			DuplicateCount: l.DuplicateCount,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month": month.String(),
		"count": len(items),
		"items": items,
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		_ = r.ParseForm()
		payload.Status = r.FormValue("status")
	}

	status, err := s.svc.UpdateStatus(r.Context(), id, payload.Status)
	if err != nil {
		if errors.Is(err, core.ErrInvalidStatus) {
			allowed := make([]string, len(core.AllowedStatuses))
			for i, a := range core.AllowedStatuses {
				allowed[i] = string(a)
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok":      false,
				"error":   "Invalid status",
				"allowed": allowed,
			})
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Update status failed", "error", err, "record_id", id)
		writeError(w, http.StatusBadGateway, "could not update status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"recordId": id,
		"status":   string(status),
	})
}

type pendingJSON struct {
	Count int     `json:"count"`
	Gross float64 `json:"gross"`
}

type bucketJSON struct {
	Gross                    float64                `json:"gross"`
	Net                      float64                `json:"net"`
	VAT                      float64                `json:"vat"`
	Count                    int                    `json:"count"`
	ByCategory               map[string]float64     `json:"byCategory"`
	ByPaymentMethod          map[string]float64     `json:"byPaymentMethod"`
	CompanyCardCharged       float64                `json:"companyCardCharged"`
	ReimbursementsByEmployee map[string]float64     `json:"reimbursementsByEmployee"`
	Pending                  map[string]pendingJSON `json:"pending"`
}

type rowJSON struct {
	RecordID      string  `json:"recordId"`
	Date          string  `json:"date"`
	Payer         string  `json:"payer"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"paymentMethod"`
	Gross         float64 `json:"gross"`
	Net           float64 `json:"net"`
	VAT           float64 `json:"vat"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

type reportJSON struct {
	Month      string                `json:"month"`
	Statuses   []string              `json:"statusesIncluded"`
	Rows       []rowJSON             `json:"rows"`
	Currencies map[string]bucketJSON `json:"currencies"`
	Total      struct {
		Gross float64 `json:"gross"`
		Count int     `json:"count"`
	} `json:"total"`
	FXPolicy string `json:"fxPolicy"`
}

func reportToJSON(rep core.Report) reportJSON {
	out := reportJSON{
		Month:      rep.Month.String(),
		Statuses:   rep.StatusesIncluded,
		Rows:       make([]rowJSON, 0, len(rep.Rows)),
		Currencies: make(map[string]bucketJSON, len(rep.ByCurrency)),
		FXPolicy:   rep.FXPolicy,
	}
	for _, row := range rep.Rows {
		out.Rows = append(out.Rows, rowJSON{
			RecordID:      row.RecordID,
			Date:          row.Date.String(),
			Payer:         row.Payer,
			Category:      row.Category,
			PaymentMethod: row.Payment,
			Gross:         row.Gross.Float(),
			Net:           row.Net.Float(),
			VAT:           row.VAT.Float(),
			Currency:      row.Currency,
			Status:        string(row.Status),
		})
	}
	out.Total.Gross = rep.Total.Sum.Float()
	out.Total.Count = rep.Total.Count

	for label, bucket := range rep.ByCurrency {
		b := bucketJSON{
			Gross:                    bucket.Sum.Float(),
			Net:                      bucket.Net.Float(),
			VAT:                      bucket.VAT.Float(),
			Count:                    bucket.Count,
			ByCategory:               moneyMap(bucket.ByCategory),
			ByPaymentMethod:          moneyMap(bucket.ByPayment),
			CompanyCardCharged:       bucket.CompanyCard.Float(),
			ReimbursementsByEmployee: moneyMap(bucket.Reimbursements),
			Pending: map[string]pendingJSON{
				"inProgress":  {Count: bucket.PendingProgress.Count, Gross: bucket.PendingProgress.Gross.Float()},
				"underReview": {Count: bucket.PendingReview.Count, Gross: bucket.PendingReview.Gross.Float()},
			},
		}
		out.Currencies[label] = b
	}
	return out
}

func moneyMap(in map[string]core.Money) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v.Float()
	}
	return out
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statuses := s.statusesFromRequest(r)

	rep, err := s.svc.MonthlyReport(r.Context(), month, statuses)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Monthly report failed", "error", err, "month", month.String())
		writeError(w, http.StatusBadGateway, "could not build report")
		return
	}
	writeJSON(w, http.StatusOK, reportToJSON(rep))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statuses := s.statusesFromRequest(r)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "expense-report-"+month.String()+".pdf"))

	rep, err := s.svc.MonthlyReport(r.Context(), month, statuses)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Monthly report failed", "error", err, "month", month.String())
		// The body is still a readable PDF, but the status must say failure.
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(report.RenderErrorPDF("The report could not be built: " + err.Error()))
		return
	}

	pdf, err := report.RenderPDF(rep)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "PDF rendering failed", "error", err, "month", month.String())
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(report.RenderErrorPDF("The report could not be rendered."))
		return
	}
	_, _ = w.Write(pdf)
}

func (s *Server) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}

	to := auth.UserEmail(r)
	if to == "" {
		to = s.summaryTo
	}
	if to == "" {
		writeError(w, http.StatusBadRequest, "no recipient: authenticate or configure SUMMARY_TO")
		return
	}

	month, err := monthFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statuses := s.statusesFromRequest(r)

	rep, err := s.svc.MonthlyReport(r.Context(), month, statuses)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Monthly report failed", "error", err, "month", month.String())
		writeError(w, http.StatusBadGateway, "could not build report")
		return
	}

	pdf, err := report.RenderPDF(rep)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "PDF rendering failed", "error", err, "month", month.String())
		pdf = nil
	}

	// Delivery is fire and forget; the request only confirms the handoff.
	logger := applog.FromContext(r.Context())
	go func() {
		ctx := context.Background()
		if err := s.mailer.Send(ctx, to, notify.SummarySubject(rep), notify.SummaryBody(rep), pdf); err != nil {
			logger.Error("Summary email failed", "error", err, "to", to, "month", rep.Month.String())
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"to":    to,
		"month": month.String(),
	})
}

func (s *Server) handleSeedSamples(w http.ResponseWriter, r *http.Request) {
	count := 10
	if v := strings.TrimSpace(r.URL.Query().Get("count")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = n
		}
	}

	month, err := monthFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pool := s.statusesFromRequest(r)

	ids, err := s.svc.SeedSamples(r.Context(), month, count, pool)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Seed samples failed", "error", err, "month", month.String())
		writeError(w, http.StatusBadGateway, "could not seed samples")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"created": len(ids),
		"ids":     ids,
		"month":   month.String(),
	})
}

// handleAnalyzeReceipt runs field extraction over an uploaded receipt so
// the client can prefill the submission form. Nothing is persisted here.
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "receipt analysis is not configured")
		return
	}

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read image")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	if int64(len(image)) > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	extraction, err := s.analyzer.AnalyzeReceipt(r.Context(), image, mimeType)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Receipt analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not analyze receipt")
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"email": auth.UserEmail(r),
	})
}
