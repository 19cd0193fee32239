package httpds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRemoteOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.csv":
			if r.Header.Get("Authorization") != "Bearer t" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, "a,b\n1,2\n")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Timeout: 5 * time.Second, MaxRetries: 0})
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer t")

	rc, err := NewRemote(c, srv.URL+"/ok.csv", hdr).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("body = %q", b)
	}

	_, err = NewRemote(c, srv.URL+"/missing.csv", nil).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Fatalf("Open(missing) error = %v, want status 404", err)
	}
}
