package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raaee/internal/application"
	"raaee/internal/domain"
	"raaee/internal/infra/api"
	"raaee/internal/infra/metrics"
)

type fakeAdvisor struct {
	mu        sync.Mutex
	calls     int
	clip      domain.Clip
	text      string
	result    *application.Result
	err       error
	panicWith any
	kb        *domain.KnowledgeBase
}

func (f *fakeAdvisor) Answer(_ context.Context, clip domain.Clip) (*application.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.clip = clip
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.result, f.err
}

func (f *fakeAdvisor) AnswerText(_ context.Context, text string) (*application.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.text = text
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuery
	}
	return f.result, f.err
}

func (f *fakeAdvisor) KnowledgeBase() *domain.KnowledgeBase {
	if f.kb == nil {
		return domain.NewKnowledgeBase(nil)
	}
	return f.kb
}

func wheatResult() *application.Result {
	return &application.Result{
		Transcription: "گندم کی کھاد",
		Query:         "wheat fertilizer",
		Crop:          "wheat",
		Response:      "گندم میں ڈی اے پی بوائی کے وقت ڈالیں۔",
	}
}

func newServer(advisor *fakeAdvisor, cfg api.Config) (*api.Server, *metrics.Metrics) {
	m := metrics.NewMetrics()
	return api.NewServer(cfg, advisor, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

type part struct {
	field       string
	filename    string
	contentType string
	data        []byte
	isFile      bool
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if !p.isFile {
			require.NoError(t, mw.WriteField(p.field, string(p.data)))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		ct := p.contentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postAudio(t *testing.T, handler http.Handler, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/process_audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProcessAudio_Success(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, _ := newServer(advisor, api.Config{})

	rec := postAudio(t, server.Handler(), part{
		field: "audio", filename: "recording.webm", contentType: "audio/webm",
		data: []byte("webm-bytes"), isFile: true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "گندم کی کھاد", body["transcription"])
	assert.Equal(t, "گندم میں ڈی اے پی بوائی کے وقت ڈالیں۔", body["response"])
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "wheat", body["crop"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotContains(t, body, "degraded")

	assert.Equal(t, "recording.webm", advisor.clip.Filename)
	assert.Equal(t, "audio/webm", advisor.clip.ContentType)
	assert.Equal(t, []byte("webm-bytes"), advisor.clip.Data)
}

func TestProcessAudio_TranscriptionPlaceholderIsStillSuccess(t *testing.T) {
	advisor := &fakeAdvisor{result: &application.Result{
		Transcription: domain.MsgUnintelligible,
		Response:      domain.MsgUnintelligible,
		Degraded:      true,
	}}
	server, _ := newServer(advisor, api.Config{})

	rec := postAudio(t, server.Handler(), part{field: "audio", filename: "a.wav", data: []byte("x"), isFile: true})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, domain.MsgUnintelligible, body["transcription"])
	assert.Equal(t, domain.MsgUnintelligible, body["response"])
	assert.Equal(t, true, body["degraded"])
}

func TestProcessAudio_BadUploads(t *testing.T) {
	tests := []struct {
		name    string
		parts   []part
		wantErr string
	}{
		{
			name:    "no audio part",
			parts:   []part{{field: "note", data: []byte("hello")}},
			wantErr: "No audio file received",
		},
		{
			name:    "empty filename",
			parts:   []part{{field: "audio", filename: "", data: nil, isFile: true}},
			wantErr: "No file selected",
		},
		{
			name:    "zero bytes",
			parts:   []part{{field: "audio", filename: "recording.webm", data: nil, isFile: true}},
			wantErr: "Empty audio file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := &fakeAdvisor{result: wheatResult()}
			server, _ := newServer(advisor, api.Config{})

			rec := postAudio(t, server.Handler(), tt.parts...)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
			assert.Zero(t, advisor.calls)
		})
	}
}

func TestProcessAudio_NotMultipart(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, _ := newServer(advisor, api.Config{})

	req := httptest.NewRequest(http.MethodPost, "/process_audio", strings.NewReader("raw bytes"))
	req.Header.Set("Content-Type", "audio/webm")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No audio file received", decode(t, rec)["error"])
	assert.Zero(t, advisor.calls)
}

func TestProcessAudio_TooLarge(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, _ := newServer(advisor, api.Config{MaxUploadBytes: 1024})

	rec := postAudio(t, server.Handler(), part{
		field: "audio", filename: "big.webm", data: bytes.Repeat([]byte{1}, 8192), isFile: true,
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, advisor.calls)
}

func TestProcessAudio_ConversionFailure(t *testing.T) {
	advisor := &fakeAdvisor{err: fmt.Errorf("%w: ffmpeg: Invalid data found when processing input", domain.ErrConversionFailed)}
	server, _ := newServer(advisor, api.Config{})

	rec := postAudio(t, server.Handler(), part{field: "audio", filename: "bad.webm", data: []byte("junk"), isFile: true})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Failed to convert audio to WAV", body["error"])
	assert.Contains(t, body["details"], "Invalid data")
}

func TestProcessAudio_ServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		advisor *fakeAdvisor
		details string
	}{
		{"unexpected error", &fakeAdvisor{err: errors.New("disk on fire")}, "disk on fire"},
		{"panic", &fakeAdvisor{panicWith: "nil map write"}, "nil map write"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newServer(tt.advisor, api.Config{})

			rec := postAudio(t, server.Handler(), part{field: "audio", filename: "a.wav", data: []byte("x"), isFile: true})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "سرور میں مسئلہ ہوا۔", body["error"])
			assert.Equal(t, tt.details, body["details"])
		})
	}
}

func TestProcessAudio_RateLimited(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, m := newServer(advisor, api.Config{RateLimit: 2, RateWindow: time.Minute})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := postAudio(t, server.Handler(), part{field: "audio", filename: "a.wav", data: []byte("x"), isFile: true})
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, advisor.calls)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "raaee_http_rate_limited_total 1")
	assert.Contains(t, rec.Body.String(), `raaee_http_requests_total{endpoint="/process_audio",method="POST",status_code="429"} 1`)
}

func TestProcessAudio_AuthToken(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, _ := newServer(advisor, api.Config{AuthToken: "secret"})

	rec := postAudio(t, server.Handler(), part{field: "audio", filename: "a.wav", data: []byte("x"), isFile: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, advisor.calls)

	body, contentType := multipartBody(t, part{field: "audio", filename: "a.wav", data: []byte("x"), isFile: true})
	req := httptest.NewRequest(http.MethodPost, "/process_audio", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Auth-Token", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessText(t *testing.T) {
	advisor := &fakeAdvisor{result: wheatResult()}
	server, _ := newServer(advisor, api.Config{})

	t.Run("form", func(t *testing.T) {
		form := url.Values{"text": {"گندم کی کھاد"}}
		req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "wheat", decode(t, rec)["crop"])
		assert.Equal(t, "گندم کی کھاد", advisor.text)
	})

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader(`{"text":"چاول کی کھاد"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "چاول کی کھاد", advisor.text)
	})

	t.Run("empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader("text=+"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No text received", decode(t, rec)["error"])
	})
}

func TestBannerAndHealth(t *testing.T) {
	advisor := &fakeAdvisor{kb: domain.NewKnowledgeBase(map[string]json.RawMessage{
		"wheat": json.RawMessage(`{}`),
		"rice":  json.RawMessage(`{}`),
	})}
	server, _ := newServer(advisor, api.Config{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	banner := decode(t, rec)
	assert.Equal(t, "running", banner["status"])
	assert.Contains(t, banner["endpoints"], "process_audio")

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(2), health["knowledge_crops"])

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDIsReused(t *testing.T) {
	server, _ := newServer(&fakeAdvisor{}, api.Config{})
	id := "3f2b8a4e-7c1d-4e5f-9a6b-2c3d4e5f6a7b"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-ID"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCORSPreflight(t *testing.T) {
	advisor := &fakeAdvisor{}
	server, _ := newServer(advisor, api.Config{})

	req := httptest.NewRequest(http.MethodOptions, "/process_audio", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, advisor.calls)
}

func TestServer_StartStop(t *testing.T) {
	server, _ := newServer(&fakeAdvisor{}, api.Config{Addr: "127.0.0.1:0"})

	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop())
}
