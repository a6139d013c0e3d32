package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSnippetKey(t *testing.T) {
	if got := SnippetKey("en-pickthall", 2, 255); got != "en-pickthall/2/255.json" {
		t.Errorf("SnippetKey = %q", got)
	}
}

func TestFilePublisher(t *testing.T) {
	root := t.TempDir()
	p := NewFilePublisher(root)

	s := Snippet{BookID: "bukhari", Author: "Bukhari", Chapter: 1, Verse: 3, ChapterName: "Revelation", Type: "narrative", Text: "Narrated Aisha"}
	if err := PublishSnippet(context.Background(), p, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "bukhari", "1", "3.json"))
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	var got Snippet
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}

	if err := p.Publish(context.Background(), "../outside.json", []byte("{}")); err == nil {
		t.Error("expected error for key escaping the root")
	}
	if err := PublishSnippet(context.Background(), p, Snippet{Chapter: 1, Verse: 1}); err == nil {
		t.Error("expected error for snippet without book id")
	}
}

func TestHTTPPublisher(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotPath, gotAuth, gotBody = r.URL.Path, r.Header.Get("Authorization"), string(body)
		if r.URL.Path == "/verses/denied/1/1.json" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(srv.URL+"/verses/", "secret")
	if err := p.Publish(context.Background(), "en-pickthall/1/1.json", []byte(`{"text":"x"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/verses/en-pickthall/1/1.json" || gotAuth != "Bearer secret" || gotBody != `{"text":"x"}` {
		t.Errorf("unexpected request %q %q %q", gotPath, gotAuth, gotBody)
	}

	if err := p.Publish(context.Background(), "denied/1/1.json", []byte("{}")); err == nil {
		t.Error("expected error for forbidden upload")
	}
}
