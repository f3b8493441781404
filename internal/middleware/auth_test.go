package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubParser map[string]string

func (s stubParser) Parse(token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func TestAuth(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(stubParser{"good": "user-1"})(next)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		userID string
	}{
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", "", http.StatusUnauthorized, ""},
		{"header", "Bearer good", "", http.StatusNoContent, "user-1"},
		{"query", "", "access_token=good", http.StatusNoContent, "user-1"},
	}
	for _, tt := range tests {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
		if seen != tt.userID {
			t.Errorf("%s: user id = %q, want %q", tt.name, seen, tt.userID)
		}
	}
}

func TestAdminKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		key    string
		header string
		status int
	}{
		{"", "", http.StatusForbidden},
		{"", "anything", http.StatusForbidden},
		{"secret", "wrong", http.StatusForbidden},
		{"secret", "secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-Admin-Key", tt.header)
		rec := httptest.NewRecorder()
		AdminKey(tt.key)(next).ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("key=%q header=%q: status = %d, want %d", tt.key, tt.header, rec.Code, tt.status)
		}
	}
}
