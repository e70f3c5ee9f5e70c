package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expensify/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// monthFromRequest resolves a YYYY-MM period from the month query param,
// with a year+m parts fallback and the current month as default. A value
// that was provided but does not parse is an error; silently substituting
// another month would serve the wrong data.
func monthFromRequest(r *http.Request) (core.Month, error) {
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		m, err := core.ParseMonth(raw)
		if err != nil {
			return core.Month{}, fmt.Errorf("invalid month %q: %w", raw, err)
		}
		return m, nil
	}

	now := time.Now()
	month := core.Month{Year: now.Year(), Month: int(now.Month())}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Month{}, fmt.Errorf("invalid year %q", v)
		}
		month.Year = y
	}
	for _, key := range []string{"monthNum", "m"} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Month{}, fmt.Errorf("invalid month number %q", v)
		}
		month.Month = m
		break
	}
	return month, nil
}

// statusesFromRequest reads the comma separated statuses parameter.
// Returns nil when the parameter is absent (caller applies the default
// set); an empty slice when it is present but names no allowed status.
// Allowed is the canonical set plus whatever the deployment configured
// as its report defaults, so non-canonical configured statuses stay
// requestable per request.
func (s *Server) statusesFromRequest(r *http.Request) []core.Status {
	if !r.URL.Query().Has("statuses") {
		return nil
	}

	allowed := make(map[core.Status]struct{}, len(core.AllowedStatuses))
	for _, a := range core.AllowedStatuses {
		allowed[a] = struct{}{}
	}
	for _, a := range s.svc.DefaultStatuses() {
		allowed[a] = struct{}{}
	}

	out := []core.Status{}
	for _, part := range strings.Split(r.URL.Query().Get("statuses"), ",") {
		candidate := core.Status(strings.TrimSpace(part))
		if _, ok := allowed[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
