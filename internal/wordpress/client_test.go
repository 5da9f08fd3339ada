package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"newswire/internal/config"
	"newswire/internal/services"
)

func testConfig(t *testing.T, baseURL string) config.WordPress {
	t.Helper()
	t.Setenv("TEST_WP_USER", "editor")
	t.Setenv("TEST_WP_PASS", "app-password")
	return config.WordPress{
		BaseURL:     baseURL,
		UsernameEnv: "TEST_WP_USER",
		PasswordEnv: "TEST_WP_PASS",
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("TEST_WP_USER", "")
	t.Setenv("TEST_WP_PASS", "")
	_, err := New(config.WordPress{
		BaseURL:     "https://example.com",
		UsernameEnv: "TEST_WP_USER",
		PasswordEnv: "TEST_WP_PASS",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration classification, got %v", err)
	}
}

func TestUpsertPostCreatesAndUpdates(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app-password" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		paths = append(paths, r.Method+" "+r.URL.Path)
		fmt.Fprint(w, `{"id":42,"link":"https://example.com/p/42"}`)
	}))
	defer server.Close()

	client, err := New(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	created, err := client.UpsertPost(context.Background(), Post{Title: "Title", Content: "Body"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 42 || created.Link != "https://example.com/p/42" {
		t.Fatalf("unexpected result %+v", created)
	}
	if _, err := client.UpsertPost(context.Background(), Post{RemoteID: 42, Title: "Title"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []string{
		"POST /wp-json/wp/v2/posts",
		"POST /wp-json/wp/v2/posts/42",
	}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestUpsertPostMissingRemoteIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_post_invalid_id"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.UpsertPost(context.Background(), Post{RemoteID: 999, Title: "gone"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
	if !services.IsRowFailure(err) {
		t.Fatal("missing remote post should be a row failure")
	}
}

func TestEnsureTagsReusesAndCreates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/wp-json/wp/v2/tags":
			if r.URL.Query().Get("search") == "economia" {
				fmt.Fprint(w, `[{"id":7,"name":"Economia"}]`)
				return
			}
			fmt.Fprint(w, `[]`)
		case r.Method == http.MethodPost && r.URL.Path == "/wp-json/wp/v2/tags":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["name"] == "colidida" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"code":"term_exists","data":{"term_id":13}}`)
				return
			}
			fmt.Fprint(w, `{"id":21,"name":"`+body["name"]+`"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := New(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ids, err := client.EnsureTags(context.Background(), []string{"economia", "nova", "colidida", " "})
	if err != nil {
		t.Fatalf("EnsureTags: %v", err)
	}
	if len(ids) != 3 || ids[0] != 7 || ids[1] != 21 || ids[2] != 13 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestSetPostCategories(t *testing.T) {
	var gotBody map[string][]int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"id":5,"categories":[2,9]}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"id":5}`)
	}))
	defer server.Close()

	client, err := New(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	current, err := client.PostCategories(context.Background(), 5)
	if err != nil {
		t.Fatalf("PostCategories: %v", err)
	}
	if len(current) != 2 || current[0] != 2 || current[1] != 9 {
		t.Fatalf("categories = %v", current)
	}
	if err := client.SetPostCategories(context.Background(), 5, []int{2, 9, 11}); err != nil {
		t.Fatalf("SetPostCategories: %v", err)
	}
	if len(gotBody["categories"]) != 3 {
		t.Fatalf("body = %v", gotBody)
	}
}
