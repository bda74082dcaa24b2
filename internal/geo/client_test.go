package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SendsAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CSCAPI-KEY"); got != "test-key" {
			t.Errorf("expected API key header, got %q", got)
		}
		json.NewEncoder(w).Encode([]Country{{Name: "Iceland", ISO2: "IS"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	countries, err := client.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries failed: %v", err)
	}
	if len(countries) != 1 || countries[0].ISO2 != "IS" {
		t.Fatalf("unexpected countries: %v", countries)
	}
}

func TestClient_PathsPerLevel(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	ctx := context.Background()
	if _, err := client.Countries(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.States(ctx, "IS"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Cities(ctx, "IS", "1"); err != nil {
		t.Fatal(err)
	}

	want := []string{"/countries", "/countries/IS/states", "/countries/IS/states/1/cities"}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("call %d: expected path %s, got %s", i, p, paths[i])
		}
	}
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, "bad-key").Countries(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
