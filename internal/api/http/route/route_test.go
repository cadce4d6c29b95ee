package route_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/api/http/handler"
	"github.com/extra24/bus-booking-deploy/internal/api/http/route"
	"github.com/extra24/bus-booking-deploy/internal/config"
	"github.com/extra24/bus-booking-deploy/internal/model"
)

type fakeStats struct {
	stats *model.Stats
	err   error
}

func (f *fakeStats) GetStats(_ context.Context) (*model.Stats, error) {
	return f.stats, f.err
}

type fakeBooking struct {
	status *model.BookingStatus
	err    error
	body   []byte
	calls  int
}

func (f *fakeBooking) Book(_ context.Context, rawBody []byte) (*model.BookingStatus, error) {
	f.calls++
	f.body = rawBody

	return f.status, f.err
}

func newRouter(t *testing.T, basePath string, stats *fakeStats, booking *fakeBooking) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.BasePath = basePath

	log := zap.NewNop()

	return route.SetupRouter(log, cfg,
		handler.NewStatsHandler(log, stats),
		handler.NewBookingHandler(log, booking),
	)
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func assertHeaders(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	want := map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Access-Control-Allow-Headers": "content-type",
	}

	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestGetStats(t *testing.T) {
	stats := &fakeStats{stats: &model.Stats{Processed: 3, Success: 3, Requests: 5}}
	h := newRouter(t, "/", stats, &fakeBooking{})

	for _, path := range []string{"/api/stats", "/prod/api/stats"} {
		rec := do(h, http.MethodGet, path, nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}

		if rec.Body.String() != `{"processed":3,"success":3,"requests":5}` {
			t.Errorf("%s: body = %s", path, rec.Body.String())
		}

		assertHeaders(t, rec)
	}
}

func TestGetStatsFailure(t *testing.T) {
	h := newRouter(t, "/", &fakeStats{err: errors.New("redis down")}, &fakeBooking{})

	rec := do(h, http.MethodGet, "/api/stats", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	if rec.Body.String() != `{"error":"redis down"}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	assertHeaders(t, rec)
}

func TestBookBus(t *testing.T) {
	booking := &fakeBooking{status: &model.BookingStatus{
		Status: "queued",
		Stats:  &model.Stats{Processed: 0, Success: 0, Requests: 1},
	}}
	h := newRouter(t, "/", &fakeStats{}, booking)

	rec := do(h, http.MethodPost, "/stage/api/book-bus", []byte(`{"tripId":"T1"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if rec.Body.String() != `{"status":"queued","stats":{"processed":0,"success":0,"requests":1}}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	if string(booking.body) != `{"tripId":"T1"}` {
		t.Errorf("forwarded body = %s", booking.body)
	}

	assertHeaders(t, rec)
}

func TestBookBusNullStats(t *testing.T) {
	h := newRouter(t, "/", &fakeStats{}, &fakeBooking{status: &model.BookingStatus{Status: "queued"}})

	rec := do(h, http.MethodPost, "/api/book-bus", nil)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if v, ok := resp["stats"]; !ok || v != nil {
		t.Errorf("stats = %v, want explicit null", v)
	}
}

func TestBookBusFailure(t *testing.T) {
	h := newRouter(t, "/", &fakeStats{}, &fakeBooking{err: errors.New("queue does not exist: bookings")})

	rec := do(h, http.MethodPost, "/api/book-bus", []byte(`{}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	if rec.Body.String() != `{"error":"queue does not exist: bookings"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestPreflightAndNotFound(t *testing.T) {
	booking := &fakeBooking{}
	h := newRouter(t, "/", &fakeStats{}, booking)

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{http.MethodOptions, "/api/book-bus", http.StatusOK, `{"ok":true}`},
		{http.MethodOptions, "/anything", http.StatusOK, `{"ok":true}`},
		{http.MethodGet, "/unknown-path", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodGet, "/api/book-bus", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodPost, "/api/stats", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodDelete, "/api/stats", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodGet, "/api/stats/extra", http.StatusNotFound, `{"error":"not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, nil)

			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Fatalf("got %d %s, want %d %s", rec.Code, rec.Body.String(), tt.code, tt.body)
			}

			assertHeaders(t, rec)
		})
	}

	if booking.calls != 0 {
		t.Errorf("booking called %d times", booking.calls)
	}
}

func TestBasePathOutsideGroupIsNotFound(t *testing.T) {
	h := newRouter(t, "/prod", &fakeStats{stats: &model.Stats{}}, &fakeBooking{})

	if rec := do(h, http.MethodGet, "/prod/api/stats", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	for _, path := range []string{"/dev/api/stats", "/prod"} {
		rec := do(h, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound || rec.Body.String() != `{"error":"not found"}` {
			t.Fatalf("%s: got %d %s", path, rec.Code, rec.Body.String())
		}

		assertHeaders(t, rec)
	}
}
