package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func listingJSON(posts []map[string]interface{}) []byte {
	children := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		children = append(children, map[string]interface{}{"data": p})
	}
	b, _ := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{"children": children},
	})
	return b
}

// TestFetchBatchFiltering verifies stickied, pinned, over_18, and non-image
// posts never become candidates
func TestFetchBatchFiltering(t *testing.T) {
	posts := []map[string]interface{}{
		{"title": "good jpg", "url": "https://i.redd.it/a.jpg", "author": "u1", "permalink": "/r/memes/1", "ups": 100},
		{"title": "good png", "url": "https://i.redd.it/b.png", "author": "u2", "permalink": "/r/memes/2", "ups": 50},
		{"title": "stickied", "url": "https://i.redd.it/c.jpg", "stickied": true},
		{"title": "pinned", "url": "https://i.redd.it/d.jpg", "pinned": true},
		{"title": "nsfw", "url": "https://i.redd.it/e.jpg", "over_18": true},
		{"title": "video gifv", "url": "https://i.imgur.com/f.gifv"},
		{"title": "video mp4", "url": "https://v.redd.it/g.mp4"},
		{"title": "video webm", "url": "https://v.redd.it/h.webm"},
		{"title": "link post", "url": "https://example.com/article"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/memes/top.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("t"); got != "day" {
			t.Errorf("t = %q, want day", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(listingJSON(posts))
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"memes"}, BaseURL: srv.URL})
	cands, next, err := a.FetchBatch(context.Background(), "", 25)
	if err != nil {
		t.Fatalf("FetchBatch returned error: %v", err)
	}
	if next != "" {
		t.Errorf("next cursor = %q, want empty (single subreddit)", next)
	}
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}

	c := cands[0]
	if c.Title != "good jpg" || c.ImageURL != "https://i.redd.it/a.jpg" {
		t.Errorf("candidate = %+v", c)
	}
	if c.Author != "u1" || c.Score != 100 {
		t.Errorf("author/score = %s/%d, want u1/100", c.Author, c.Score)
	}
	if c.SourceURL != "https://www.reddit.com/r/memes/1" {
		t.Errorf("SourceURL = %s, want permalink on reddit.com", c.SourceURL)
	}
	if c.Source != "reddit:memes" {
		t.Errorf("Source = %s, want reddit:memes", c.Source)
	}
}

// TestFetchBatchCursor verifies the cursor walks the subreddit list one per
// call
func TestFetchBatchCursor(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write(listingJSON([]map[string]interface{}{
			{"title": "one", "url": "https://i.redd.it/x.jpg"},
		}))
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"memes", "dankmemes"}, BaseURL: srv.URL})

	cands, next, err := a.FetchBatch(context.Background(), "", 25)
	if err != nil {
		t.Fatalf("FetchBatch returned error: %v", err)
	}
	if len(cands) != 1 || next != "1" {
		t.Errorf("first call: %d candidates, next=%q, want 1 and cursor 1", len(cands), next)
	}

	cands, next, err = a.FetchBatch(context.Background(), next, 25)
	if err != nil {
		t.Fatalf("FetchBatch returned error: %v", err)
	}
	if len(cands) != 1 || next != "" {
		t.Errorf("second call: %d candidates, next=%q, want 1 and exhausted", len(cands), next)
	}

	if len(requested) != 2 || requested[0] != "/r/memes/top.json" || requested[1] != "/r/dankmemes/top.json" {
		t.Errorf("requested paths = %v", requested)
	}

	// Past the end of the list.
	cands, next, err = a.FetchBatch(context.Background(), "5", 25)
	if err != nil || cands != nil || next != "" {
		t.Errorf("exhausted cursor: cands=%v next=%q err=%v", cands, next, err)
	}
}

func TestFetchBatchLimit(t *testing.T) {
	var posts []map[string]interface{}
	for _, u := range []string{"a", "b", "c", "d"} {
		posts = append(posts, map[string]interface{}{"title": u, "url": "https://i.redd.it/" + u + ".jpg"})
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(listingJSON(posts))
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"memes"}, BaseURL: srv.URL})
	cands, _, err := a.FetchBatch(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("FetchBatch returned error: %v", err)
	}
	if len(cands) != 2 {
		t.Errorf("candidates = %d, want 2 (limit applied)", len(cands))
	}
}

func TestFetchBatchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"memes"}, BaseURL: srv.URL})
	if _, _, err := a.FetchBatch(context.Background(), "", 25); err == nil {
		t.Error("FetchBatch should fail on a non-200 response")
	}
}

func TestIsImageURL(t *testing.T) {
	testCases := []struct {
		url  string
		want bool
	}{
		{"https://i.redd.it/a.jpg", true},
		{"https://i.redd.it/a.JPEG", true},
		{"https://i.redd.it/a.png", true},
		{"https://i.redd.it/a.gif", true},
		{"https://i.imgur.com/a.gifv", false},
		{"https://v.redd.it/a.mp4", false},
		{"https://v.redd.it/a.webm", false},
		{"https://example.com/page", false},
		{"", false},
	}
	for _, tc := range testCases {
		if got := isImageURL(tc.url); got != tc.want {
			t.Errorf("isImageURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

// TestURLOverriddenByDest verifies the resolved destination URL is preferred
// over the raw url field
func TestURLOverriddenByDest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(listingJSON([]map[string]interface{}{
			{"title": "crosspost", "url": "https://www.reddit.com/r/other/1", "url_overridden_by_dest": "https://i.redd.it/real.png"},
		}))
	}))
	defer srv.Close()

	a := NewAdapter(&Config{Subreddits: []string{"memes"}, BaseURL: srv.URL})
	cands, _, err := a.FetchBatch(context.Background(), "", 25)
	if err != nil {
		t.Fatalf("FetchBatch returned error: %v", err)
	}
	if len(cands) != 1 || cands[0].ImageURL != "https://i.redd.it/real.png" {
		t.Errorf("candidates = %+v, want the overridden URL", cands)
	}
}
