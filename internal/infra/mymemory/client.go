// Package mymemory translates text through the MyMemory public REST API.
package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"raaee/internal/domain"
)

const DefaultBaseURL = "https://api.mymemory.translated.net"

type Config struct {
	BaseURL string
	Source  string
	Target  string
	// Email raises the anonymous daily quota when set.
	Email   string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	langPair   string
	email      string
	httpClient *http.Client
	logger     *slog.Logger
}

type response struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Source == "" {
		cfg.Source = "ur"
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		langPair:   cfg.Source + "|" + cfg.Target,
		email:      cfg.Email,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Translate returns the translation of text, or an error wrapping
// domain.ErrTranslationFailed. An empty translation is not an error.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", c.langPair)
	if c.email != "" {
		params.Set("de", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", domain.ErrTranslationFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", domain.ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", domain.ErrTranslationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrTranslationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", domain.ErrTranslationFailed, err)
	}

	if status := parseStatus(result.ResponseStatus); status != 0 && status != http.StatusOK {
		return "", fmt.Errorf("%w: service status %d: %s", domain.ErrTranslationFailed, status, result.ResponseDetails)
	}

	translated := strings.TrimSpace(html.UnescapeString(result.ResponseData.TranslatedText))
	if strings.HasPrefix(strings.ToUpper(translated), "MYMEMORY WARNING") {
		return "", fmt.Errorf("%w: %s", domain.ErrTranslationFailed, translated)
	}

	c.logger.Debug("translated", "langpair", c.langPair, "source", text, "translation", translated)
	return translated, nil
}

// parseStatus reads responseStatus, which the service sends either as a
// number or as a quoted number.
func parseStatus(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
