// Package transcribe provides the client of the speech recognition service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout - таймаут одного запроса распознавания.
	// Большой, потому что Whisper large на длинной записи работает долго.
	DefaultTimeout = 120 * time.Second
)

// ErrTimeout - запрос не уложился в таймаут.
var ErrTimeout = errors.New("transcribe: таймаут запроса")

// StatusError - ошибка, возвращённая сервисом (HTTP статус не 200).
// При такой ошибке повторять запрос нельзя: сервис мог частично
// обработать chunk.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcribe: сервис вернул %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("transcribe: сервис вернул %d", e.Code)
}

// Result - результат распознавания. Неизменяемый, потребляется
// доставкой один раз.
type Result struct {
	SourceText       string
	TranslatedText   string
	DetectedLanguage string
}

// Text возвращает текст для доставки: перевод если он есть,
// иначе исходный текст.
func (r Result) Text() string {
	if strings.TrimSpace(r.TranslatedText) != "" {
		return r.TranslatedText
	}
	return r.SourceText
}

// chunkResponse - ответ сервиса на POST /chunk/.
type chunkResponse struct {
	RawText          string `json:"raw_text"`
	Translation      string `json:"translation"`
	DetectedLanguage string `json:"detected_language"`
}

// Client отправляет аудио в сервис распознавания.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	sessionID  string
	chunkID    atomic.Int64
}

// New создаёт клиент. session_id генерируется один раз на процесс.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		// Таймаут задаётся контекстом per-request, клиент без своего
		httpClient: &http.Client{},
		timeout:    timeout,
		sessionID:  uuid.NewString(),
	}
}

// Transcribe отправляет WAV в сервис и возвращает исходный и
// переведённый текст. sourceLang - код языка источника или пустая
// строка/"auto" для автоопределения. Повторов внутри клиента нет -
// политика повторов принадлежит вызывающему.
func (c *Client) Transcribe(ctx context.Context, baseURL string, wav []byte, sourceLang, targetLang string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chunkID := c.chunkID.Add(1)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"session_id":      c.sessionID,
		"chunk_id":        strconv.FormatInt(chunkID, 10),
		"target_language": targetLang,
	}
	if sourceLang != "" && sourceLang != "auto" {
		fields["language"] = sourceLang
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return Result{}, fmt.Errorf("transcribe: форма: %w", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: форма: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return Result{}, fmt.Errorf("transcribe: форма: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("transcribe: форма: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chunk/", &body)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("Отправка chunk %d (%d байт, target=%s)", chunkID, len(wav), targetLang)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, fmt.Errorf("transcribe: отправка запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, &StatusError{Code: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	var decoded chunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("transcribe: разбор ответа: %w", err)
	}

	result := Result{
		SourceText:       strings.TrimSpace(decoded.RawText),
		TranslatedText:   strings.TrimSpace(decoded.Translation),
		DetectedLanguage: decoded.DetectedLanguage,
	}

	log.Printf("Распознано за %v (язык %s): %q",
		time.Since(start).Round(time.Millisecond), result.DetectedLanguage, result.SourceText)

	return result, nil
}

// isTimeout отличает таймаут от прочих ошибок транспорта.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
