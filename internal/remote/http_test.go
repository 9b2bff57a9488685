package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		fmt.Fprint(w, `{"result":true,"items":[{"_id":1,"title":"Research","public":false},{"_id":2,"title":"Reading","public":true}]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-token", nil)
	got, err := c.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}

	want := []Collection{
		{ID: 1, Title: "Research"},
		{ID: 2, Title: "Reading", Public: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("collections mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateLinkReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/raindrop" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body Link
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.URL != "https://example.com" {
			t.Errorf("link url = %q", body.URL)
		}
		fmt.Fprint(w, `{"result":true,"item":{"_id":777,"link":"https://example.com"}}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "t", nil)
	id, err := c.CreateLink(context.Background(), Link{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if id != 777 {
		t.Errorf("assigned id = %d, want 777", id)
	}
}

func TestCollectionLinksPagination(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		page := r.URL.Query().Get("page")
		var items []Link
		n := perPage
		if page == "1" {
			n = 3 // short page ends the loop
		}
		for i := 0; i < n; i++ {
			items = append(items, Link{ID: int64(i), URL: fmt.Sprintf("https://example.com/%s/%d", page, i)})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": true, "items": items})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "t", nil)
	links, err := c.CollectionLinks(context.Background(), 5)
	if err != nil {
		t.Fatalf("CollectionLinks: %v", err)
	}
	if pages != 2 {
		t.Errorf("pages fetched = %d, want 2", pages)
	}
	if len(links) != perPage+3 {
		t.Errorf("links = %d, want %d", len(links), perPage+3)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 authentication",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				if !errors.As(err, &authErr) {
					t.Errorf("err = %v, want AuthenticationError", err)
				}
			},
		},
		{
			name:   "403 authorization",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authzErr *AuthorizationError
				if !errors.As(err, &authzErr) {
					t.Errorf("err = %v, want AuthorizationError", err)
				}
			},
		},
		{
			name:   "429 rate limit",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rlErr *RateLimitError
				if !errors.As(err, &rlErr) {
					t.Errorf("err = %v, want RateLimitError", err)
				}
				if !IsRetryable(err) {
					t.Error("rate limit error should be retryable")
				}
			},
		},
		{
			name:   "500 network",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var netErr *NetworkError
				if !errors.As(err, &netErr) {
					t.Errorf("err = %v, want NetworkError", err)
				}
				if !IsRetryable(err) {
					t.Error("server error should be retryable")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"result":false,"errorMessage":"nope"}`)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, "t", nil)
			_, err := c.ListCollections(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestResultFalseRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":false,"errorMessage":"duplicate title"}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "t", nil)
	_, err := c.CreateCollection(context.Background(), Collection{Title: "X"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Error("service-level rejection should not be retryable")
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "t", nil)
	_, err := c.ListCollections(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("err = %v, want NetworkError", err)
	}
}

func TestCheckPremiumStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":true,"user":{"pro":true}}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "t", nil)
	pro, err := c.CheckPremiumStatus(context.Background())
	if err != nil {
		t.Fatalf("CheckPremiumStatus: %v", err)
	}
	if !pro {
		t.Error("pro = false, want true")
	}
}

func TestLimiterFedByResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "120")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "9999999999")
		fmt.Fprint(w, `{"result":true,"items":[]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "t", nil)
	if _, err := c.ListCollections(context.Background()); err != nil {
		t.Fatalf("ListCollections: %v", err)
	}

	ok, msg := c.Limiter().Status()
	if ok {
		t.Errorf("Status() = true (%q), want exhausted", msg)
	}
}
