package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetPayloadHandles500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := getPayload(context.Background(), NewHTTPClient(2*time.Second), srv.URL, "k")
	if err == nil {
		t.Fatal("expected error for 500")
	}
}

func TestGetPayloadSendsAPIKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("chave")
		w.Write([]byte(`{"lista": []}`))
	}))
	defer srv.Close()

	if _, err := getPayload(context.Background(), NewHTTPClient(2*time.Second), srv.URL, "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "secret" {
		t.Fatalf("expected chave header, got %q", got)
	}
}

func TestGetPayloadBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	if _, err := getPayload(context.Background(), NewHTTPClient(2*time.Second), srv.URL, "k"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetPayloadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := getPayload(context.Background(), NewHTTPClient(200*time.Millisecond), srv.URL, "k")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestGetPayloadEmptyURL(t *testing.T) {
	if _, err := getPayload(context.Background(), NewHTTPClient(time.Second), "", "k"); err == nil {
		t.Fatal("expected error for empty url")
	}
}
