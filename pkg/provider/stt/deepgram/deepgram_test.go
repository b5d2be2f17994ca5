package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/voxprint/pkg/provider/stt"
)

const sampleResponse = `{
	"metadata": {"duration": 4.25},
	"results": {
		"channels": [{
			"alternatives": [{
				"transcript": "this is absolutely incredible",
				"confidence": 0.97,
				"words": [
					{"word": "this", "start": 0.1, "end": 0.3, "confidence": 0.99},
					{"word": "is", "start": 0.3, "end": 0.45, "confidence": 0.98},
					{"word": "absolutely", "start": 0.45, "end": 1.1, "confidence": 0.95},
					{"word": "incredible", "start": 1.1, "end": 1.8, "confidence": 0.96}
				]
			}]
		}]
	}
}`

// ─── Transcribe ───

func TestTranscribe_MapsWordsAndDuration(t *testing.T) {
	t.Parallel()

	var gotAuth, gotContentType, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(sampleResponse)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	p, err := New("secret-key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tr, err := p.Transcribe(context.Background(), []byte("fake-audio"), stt.Config{MimeType: "audio/wav"})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}

	if gotAuth != "Token secret-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Token secret-key")
	}
	if gotContentType != "audio/wav" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "audio/wav")
	}
	for _, param := range []string{"model=nova-2", "language=en", "punctuate=true"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query %q missing %q", gotQuery, param)
		}
	}

	if tr.Text != "this is absolutely incredible" {
		t.Errorf("Text = %q", tr.Text)
	}
	if tr.Confidence != 0.97 {
		t.Errorf("Confidence = %v, want 0.97", tr.Confidence)
	}
	if want := time.Duration(4.25 * float64(time.Second)); tr.Duration != want {
		t.Errorf("Duration = %v, want %v", tr.Duration, want)
	}
	if len(tr.Words) != 4 {
		t.Fatalf("got %d words, want 4", len(tr.Words))
	}
	w := tr.Words[2]
	if w.Word != "absolutely" || w.Start != 0.45 || w.End != 1.1 || w.Confidence != 0.95 {
		t.Errorf("word[2] = %+v", w)
	}
}

func TestTranscribe_ConfigLanguageOverridesDefault(t *testing.T) {
	t.Parallel()

	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("language")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	p, err := New("key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{Language: "de"}); err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if gotLang != "de" {
		t.Errorf("language = %q, want %q", gotLang, "de")
	}
}

func TestTranscribe_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New("bad-key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{}); err == nil {
		t.Fatal("expected error for 401 response")
	} else if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error = %v, want status 401 mentioned", err)
	}
}

func TestTranscribe_EmptyAlternatives(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"duration":0},"results":{"channels":[]}}`))
	}))
	defer srv.Close()

	p, err := New("key", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{}); err == nil {
		t.Fatal("expected error for empty alternatives")
	}
}

func TestTranscribe_EmptyAudioRejected(t *testing.T) {
	t.Parallel()

	p, err := New("key")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), nil, stt.Config{}); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
