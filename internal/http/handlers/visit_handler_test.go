package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecordVisit_Accepted(t *testing.T) {
	r, _, visits := newTestRouter(t)

	req := newJSONRequest(t, http.MethodPost, "/api/visit", VisitRequest{
		PagePath:       "/blog/hello-world",
		ReferrerDomain: "news.ycombinator.com",
		SessionHash:    "abcd1234",
		DurationMS:     4200,
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(visits.visits) != 1 || visits.visits[0] != "/blog/hello-world" {
		t.Fatalf("recorded visits = %v", visits.visits)
	}
}

func TestRecordVisit_RejectsBadPaths(t *testing.T) {
	r, _, visits := newTestRouter(t)

	cases := []any{
		map[string]string{},
		VisitRequest{PagePath: "https://evil.example.com/x"},
		VisitRequest{PagePath: "   "},
	}
	for i, body := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/visit", body))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d, want 400", i, w.Code)
		}
	}
	if len(visits.visits) != 0 {
		t.Fatalf("rejected visits recorded: %v", visits.visits)
	}
}

func TestRecordVisit_ClampsNegativeDuration(t *testing.T) {
	r, _, visits := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/visit", VisitRequest{
		PagePath:   "/about",
		DurationMS: -100,
	}))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(visits.visits) != 1 {
		t.Fatalf("recorded visits = %v", visits.visits)
	}
}
