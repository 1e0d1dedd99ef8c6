package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTranscribeSuccess(t *testing.T) {
	var gotTarget, gotSession, gotFilename string
	var gotLanguageSet bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chunk/" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("разбор multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotTarget = r.FormValue("target_language")
		gotSession = r.FormValue("session_id")
		_, gotLanguageSet = r.MultipartForm.Value["language"]

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("файл не найден в форме: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"raw_text":" hello ","translation":"привет","detected_language":"en"}`))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	result, err := client.Transcribe(context.Background(), srv.URL, []byte("RIFF..."), "auto", "ru")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if result.SourceText != "hello" {
		t.Errorf("исходный текст: %q", result.SourceText)
	}
	if result.TranslatedText != "привет" {
		t.Errorf("перевод: %q", result.TranslatedText)
	}
	if result.DetectedLanguage != "en" {
		t.Errorf("язык: %q", result.DetectedLanguage)
	}
	if gotTarget != "ru" {
		t.Errorf("target_language: %q", gotTarget)
	}
	if gotSession == "" {
		t.Error("session_id не передан")
	}
	if gotLanguageSet {
		t.Error("при auto поле language не должно передаваться")
	}
	if gotFilename != "audio.wav" {
		t.Errorf("имя файла: %q", gotFilename)
	}
}

func TestTranscribeSourceLanguageOverride(t *testing.T) {
	var gotLanguage string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		gotLanguage = r.FormValue("language")
		w.Write([]byte(`{"raw_text":"ok","translation":"ok","detected_language":"cs"}`))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	if _, err := client.Transcribe(context.Background(), srv.URL, nil, "cs", "en"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLanguage != "cs" {
		t.Errorf("language: %q", gotLanguage)
	}
}

func TestTranscribeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Unsupported target_language: xx"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	_, err := client.Transcribe(context.Background(), srv.URL, nil, "", "xx")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("ожидался StatusError, получено %v", err)
	}
	if statusErr.Code != http.StatusBadRequest {
		t.Errorf("код: %d", statusErr.Code)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := New(50 * time.Millisecond)
	_, err := client.Transcribe(context.Background(), srv.URL, nil, "", "en")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ожидался ErrTimeout, получено %v", err)
	}
}

func TestResultTextPrefersTranslation(t *testing.T) {
	r := Result{SourceText: "hello", TranslatedText: "привет"}
	if r.Text() != "привет" {
		t.Errorf("Text() = %q", r.Text())
	}

	r = Result{SourceText: "hello", TranslatedText: "  "}
	if r.Text() != "hello" {
		t.Errorf("Text() = %q", r.Text())
	}
}

func TestChunkIDMonotonic(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		ids = append(ids, r.FormValue("chunk_id"))
		w.Write([]byte(`{"raw_text":"ok"}`))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	for i := 0; i < 3; i++ {
		if _, err := client.Transcribe(context.Background(), srv.URL, nil, "", "en"); err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
	}

	want := []string{"1", "2", "3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("chunk_id: %v", ids)
		}
	}
}
