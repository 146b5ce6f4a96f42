package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deusflow/cosmosbot/internal/logger"
	"github.com/deusflow/cosmosbot/internal/retry"
)

func testOptions(base string) Options {
	return Options{
		BaseURL: base,
		Retry:   retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond},
		Logger:  logger.Discard(),
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "post.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff fake jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestFacebookPublishWithImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/group1/photos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("message") != "🚀 Запуск" || r.FormValue("access_token") != "tok" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		f, _, err := r.FormFile("source")
		if err != nil {
			t.Errorf("missing source file: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if !strings.HasPrefix(string(data), "\xff\xd8") {
			t.Errorf("unexpected file content")
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	fb := NewFacebook("tok", "group1", testOptions(srv.URL))
	if !fb.Publish(context.Background(), "🚀 Запуск", writeImage(t)) {
		t.Fatal("expected success")
	}
}

func TestFacebookPublishTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/group1/feed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.PostForm.Get("message") != "text" {
			t.Errorf("unexpected message %q", r.PostForm.Get("message"))
		}
		_, _ = w.Write([]byte(`{"id":"2"}`))
	}))
	defer srv.Close()

	if !NewFacebook("tok", "group1", testOptions(srv.URL)).Publish(context.Background(), "text", "") {
		t.Fatal("expected success")
	}
}

func TestFacebookClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
	}))
	defer srv.Close()

	if NewFacebook("bad", "group1", testOptions(srv.URL)).Publish(context.Background(), "text", "") {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if !NewTelegram("tok", "@chan", testOptions(srv.URL)).Publish(context.Background(), "text", "") {
		t.Fatal("expected success on third attempt")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFacebookMissingImageFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	if NewFacebook("tok", "g", testOptions(srv.URL)).Publish(context.Background(), "text", "/nonexistent/post.jpg") {
		t.Fatal("expected failure for missing file")
	}
}

func TestFacebookGroupInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/g" || r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"id":"g","name":"Космос"}`))
	}))
	defer srv.Close()

	info, err := NewFacebook("tok", "g", testOptions(srv.URL)).GroupInfo(context.Background())
	if err != nil {
		t.Fatalf("group info: %v", err)
	}
	if info["name"] != "Космос" {
		t.Errorf("unexpected info %v", info)
	}
}

func TestTelegramSendPhotoTrimsCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("chat_id") != "@chan" {
			t.Errorf("unexpected chat id %q", r.FormValue("chat_id"))
		}
		if n := len([]rune(r.FormValue("caption"))); n > captionLimit {
			t.Errorf("caption too long: %d", n)
		}
		if _, _, err := r.FormFile("photo"); err != nil {
			t.Errorf("missing photo: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	long := strings.Repeat("космос ", 400)
	if !NewTelegram("tok", "@chan", testOptions(srv.URL)).Publish(context.Background(), long, writeImage(t)) {
		t.Fatal("expected success")
	}
}

func TestTelegramSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if payload["text"] != "hello" || payload["chat_id"] != "@chan" {
			t.Errorf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if !NewTelegram("tok", "@chan", testOptions(srv.URL)).Publish(context.Background(), "hello", "") {
		t.Fatal("expected success")
	}
}
