package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
)

// fakeAPI serves a two-page file list plus the write endpoints.
type fakeAPI struct {
	*httptest.Server
	listCalls atomic.Int32
	lastAuth  atomic.Value
	failFirst atomic.Int32
	deleted   sync.Map // file ID string -> struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/file/", func(w http.ResponseWriter, r *http.Request) {
		api.listCalls.Add(1)
		api.lastAuth.Store(r.Header.Get("Authorization"))
		if api.failFirst.Load() > 0 {
			api.failFirst.Add(-1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		resp := map[string]any{"count": 3}
		var results []MediaItem
		if r.URL.Query().Get("page") == "2" {
			results = []MediaItem{media(3, "c.jpg", FileTypeImage)}
			resp["next"] = nil
		} else {
			results = []MediaItem{media(1, "a.jpg", FileTypeImage), media(2, "b.txt", FileTypeOther)}
			resp["next"] = api.URL + "/api/v1/file/?page=2"
		}
		live := []MediaItem{}
		for _, it := range results {
			if _, gone := api.deleted.Load(strconv.FormatInt(it.FileID, 10)); !gone {
				live = append(live, it)
			}
		}
		resp["results"] = live
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("DELETE /api/v1/file/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		api.deleted.Store(r.PathValue("id"), struct{}{})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/file/{id}/interactions/", func(w http.ResponseWriter, r *http.Request) {
		var req interactionRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeEnvelope(w, true, "ok", Interaction{ID: 9, Type: req.Type, Comment: req.Comment, Username: "ann"})
	})
	mux.HandleFunc("GET /api/v1/file/{id}/interactions/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, true, "ok", Interactions{TotalLikes: 2})
	})
	mux.HandleFunc("POST /api/v1/get-pre-signed-urls/", func(w http.ResponseWriter, r *http.Request) {
		var reqs []UploadRequest
		json.NewDecoder(r.Body).Decode(&reqs)
		out := make([]PresignedURL, len(reqs))
		for i, req := range reqs {
			out[i] = PresignedURL{OriginalObjectKey: req.ObjectKey, UniqueObjectKey: "u-" + req.ObjectKey, URL: "https://bucket/" + req.ObjectKey}
		}
		writeEnvelope(w, true, "Pre-signed URLs generated successfully.", out)
	})
	mux.HandleFunc("POST /api/v1/token/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "No active account"})
			return
		}
		json.NewEncoder(w).Encode(TokenPair{Access: "acc", Refresh: "ref"})
	})
	mux.HandleFunc("POST /api/v1/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access": "acc2"})
	})
	mux.HandleFunc("GET /api/v1/broken/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeEnvelope(w, false, "bad things", nil)
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func writeEnvelope(w http.ResponseWriter, ok bool, msg string, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": ok, "message": msg, "data": data})
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithRetry(3, time.Millisecond)}, opts...)
	c, err := NewClient(api.URL+"/api/v1", opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	for _, bad := range []string{"", "ftp://x", "localhost:8000"} {
		if _, err := NewClient(bad); err == nil {
			t.Errorf("NewClient(%q) should fail", bad)
		}
	}
	c, err := NewClient("http://example.com/api/v1")
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://example.com/api/v1/" {
		t.Errorf("BaseURL() = %q, want trailing slash", c.BaseURL())
	}
}

func TestClientPagination(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, WithCredentials(StaticToken("tok")))
	ctx := context.Background()

	first, err := c.FetchInitialPage(ctx)
	if err != nil {
		t.Fatalf("FetchInitialPage: %v", err)
	}
	if len(first.Items) != 2 || first.Next == "" {
		t.Fatalf("first page = %+v", first)
	}
	if got := api.lastAuth.Load(); got != "Bearer tok" {
		t.Errorf("Authorization = %v, want bearer token", got)
	}

	second, err := c.FetchPage(ctx, first.Next)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].ObjectKey != "c.jpg" || second.Next != "" {
		t.Errorf("second page = %+v, want final page with c.jpg", second)
	}
}

func TestClientRelativeToken(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)

	page, err := c.FetchPage(context.Background(), "/api/v1/file/?page=2")
	if err != nil {
		t.Fatalf("FetchPage(relative): %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("got %d items, want 1", len(page.Items))
	}
}

func TestClientRejectsForeignToken(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)

	_, err := c.FetchPage(context.Background(), "http://evil.example.com/api/v1/file/?page=2")
	if !errors.Is(err, errors.ErrCodeInvalidPageToken) {
		t.Errorf("error = %v, want INVALID_PAGE_TOKEN", err)
	}
	if api.listCalls.Load() != 0 {
		t.Error("foreign token should not trigger a request")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.failFirst.Store(2)
	c := newTestClient(t, api)

	if _, err := c.FetchInitialPage(context.Background()); err != nil {
		t.Fatalf("FetchInitialPage after transient failures: %v", err)
	}
	if n := api.listCalls.Load(); n != 3 {
		t.Errorf("list calls = %d, want 3", n)
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	api := newFakeAPI(t)
	api.failFirst.Store(10)
	c := newTestClient(t, api)

	_, err := c.FetchInitialPage(context.Background())
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
}

func TestClientPageCache(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, WithCache(cache.NewMemoryCache(), nil))
	ctx := context.Background()

	for range 3 {
		if _, err := c.FetchInitialPage(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := api.listCalls.Load(); n != 1 {
		t.Errorf("list calls = %d, want 1 with cache", n)
	}
}

func TestClientDeleteFile(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)
	ctx := context.Background()

	if err := c.DeleteFile(ctx, 1); err != nil {
		t.Errorf("DeleteFile(1): %v", err)
	}
	if err := c.DeleteFile(ctx, 99); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("DeleteFile(99) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestClientDeleteDropsCachedPages(t *testing.T) {
	api := newFakeAPI(t)
	shared := cache.NewMemoryCache()
	c := newTestClient(t, api, WithCache(shared, nil))
	other := newTestClient(t, api, WithCache(shared, nil))
	ctx := context.Background()

	for _, cl := range []*Client{c, other} {
		page, err := cl.FetchInitialPage(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("first page has %d items, want 2", len(page.Items))
		}
	}

	if err := c.DeleteFile(ctx, 1); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	for name, cl := range map[string]*Client{"deleting client": c, "client sharing the cache": other} {
		feed := NewFeed(cl, nil)
		if err := feed.Load(ctx); err != nil {
			t.Fatalf("%s: Load: %v", name, err)
		}
		for _, it := range feed.Snapshot().Items {
			if it.FileID == 1 {
				t.Errorf("%s: deleted file 1 still listed", name)
			}
		}
	}

	calls := api.listCalls.Load()
	if _, err := c.FetchInitialPage(ctx); err != nil {
		t.Fatal(err)
	}
	if api.listCalls.Load() != calls {
		t.Error("pages of the new generation should be cached again")
	}
}

func TestClientFailedDeleteKeepsCache(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, WithCache(cache.NewMemoryCache(), nil))
	ctx := context.Background()

	if _, err := c.FetchInitialPage(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteFile(ctx, 99); err == nil {
		t.Fatal("DeleteFile(99) should fail")
	}
	if _, err := c.FetchInitialPage(ctx); err != nil {
		t.Fatal(err)
	}
	if n := api.listCalls.Load(); n != 1 {
		t.Errorf("list calls = %d, want 1 after a failed delete", n)
	}
}

func TestClientInteractions(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)
	ctx := context.Background()

	like, err := c.Like(ctx, 1)
	if err != nil || like.Type != InteractionLike {
		t.Errorf("Like() = %+v, %v", like, err)
	}
	comment, err := c.Comment(ctx, 1, "  nice shot ")
	if err != nil || comment.Comment != "nice shot" {
		t.Errorf("Comment() = %+v, %v", comment, err)
	}
	if _, err := c.Comment(ctx, 1, "   "); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty Comment() error = %v, want INVALID_INPUT", err)
	}
	sum, err := c.Interactions(ctx, 1)
	if err != nil || sum.TotalLikes != 2 {
		t.Errorf("Interactions() = %+v, %v", sum, err)
	}
}

func TestClientPresignUploads(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)
	ctx := context.Background()

	urls, err := c.PresignUploads(ctx, []UploadRequest{
		{ObjectKey: "a.jpg", FileType: FileTypeImage},
		{ObjectKey: "b.mp4", FileType: FileTypeVideo},
	})
	if err != nil {
		t.Fatalf("PresignUploads: %v", err)
	}
	if len(urls) != 2 || urls[1].UniqueObjectKey != "u-b.mp4" || !strings.HasPrefix(urls[0].URL, "https://") {
		t.Errorf("PresignUploads() = %+v", urls)
	}

	if _, err := c.PresignUploads(ctx, []UploadRequest{{ObjectKey: "../x"}}); !errors.Is(err, errors.ErrCodeInvalidObjectKey) {
		t.Errorf("bad key error = %v, want INVALID_OBJECT_KEY", err)
	}
}

func TestClientTokens(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)
	ctx := context.Background()

	pair, err := c.ObtainToken(ctx, "ann", "secret")
	if err != nil || pair.Access != "acc" || pair.Refresh != "ref" {
		t.Errorf("ObtainToken() = %+v, %v", pair, err)
	}
	if _, err := c.ObtainToken(ctx, "ann", "wrong"); !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("bad password error = %v, want UNAUTHORIZED", err)
	}
	access, err := c.RefreshToken(ctx, "ref")
	if err != nil || access != "acc2" {
		t.Errorf("RefreshToken() = %q, %v", access, err)
	}
}

func TestClientEnvelopeError(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api)

	err := c.get(context.Background(), c.endpoint("broken/"), new(json.RawMessage))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("error = %v, want INVALID_INPUT", err)
	}
	if !strings.Contains(err.Error(), "bad things") {
		t.Errorf("error %q should carry the server message", err)
	}
}
