package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"raaee/internal/application"
	"raaee/internal/domain"
)

// multipartMemory is how much of an upload is buffered in memory before the
// rest spills to a temporary file.
const multipartMemory = 1 << 20

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	logger := application.LoggerFrom(r.Context(), s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large", "")
			return
		}
		logger.Warn("parsing upload", "error", err)
		writeError(w, http.StatusBadRequest, "No audio file received", "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		// A file input submitted empty arrives as a plain value.
		if _, ok := r.MultipartForm.Value["audio"]; ok {
			writeError(w, http.StatusBadRequest, "No file selected", "")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file received", "")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected", "")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("reading upload", "error", err)
		writeError(w, http.StatusInternalServerError, domain.MsgServerError, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty audio file", "")
		return
	}

	result, err := s.advisor.Answer(r.Context(), domain.Clip{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	switch {
	case errors.Is(err, domain.ErrEmptyAudio):
		writeError(w, http.StatusBadRequest, "Empty audio file", "")
	case errors.Is(err, domain.ErrConversionFailed):
		writeError(w, http.StatusBadRequest, "Failed to convert audio to WAV", err.Error())
	case err != nil:
		logger.Error("processing audio", "error", err)
		writeError(w, http.StatusInternalServerError, domain.MsgServerError, err.Error())
	default:
		writeResult(w, r, result)
	}
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	logger := application.LoggerFrom(r.Context(), s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var text string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
			return
		}
		text = req.Text
	case "multipart/form-data":
		if err := r.ParseMultipartForm(64 << 10); err != nil {
			writeError(w, http.StatusBadRequest, "No text received", "")
			return
		}
		defer r.MultipartForm.RemoveAll()
		text = r.FormValue("text")
	default:
		text = r.FormValue("text")
	}

	result, err := s.advisor.AnswerText(r.Context(), text)
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "No text received", "")
	case err != nil:
		logger.Error("processing text", "error", err)
		writeError(w, http.StatusInternalServerError, domain.MsgServerError, err.Error())
	default:
		writeResult(w, r, result)
	}
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "🌾 Raa'ee: Pakistani farming voice assistant",
		"status":  "running",
		"endpoints": map[string]string{
			"process_audio": "POST /process_audio - Process WebM/WAV audio files (multipart field \"audio\")",
			"process_text":  "POST /process_text - Answer a typed Urdu question (field \"text\")",
			"health":        "GET /health - Readiness",
			"metrics":       "GET /metrics - Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	crops := s.advisor.KnowledgeBase().Crops()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"running":         running,
		"knowledge_crops": len(crops),
		"crops":           crops,
	})
}
