package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the credential shared by the speech and chat endpoints when
// neither is configured explicitly.
const APIKeyEnv = "GROQ_API_KEY"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Knowledge   KnowledgeConfig   `yaml:"knowledge"`
	Audio       AudioConfig       `yaml:"audio"`
	Speech      SpeechConfig      `yaml:"speech"`
	Translation TranslationConfig `yaml:"translation"`
	LLM         LLMConfig         `yaml:"llm"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AuthToken      string        `yaml:"auth_token"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type KnowledgeConfig struct {
	Path string `yaml:"path"`
}

type AudioConfig struct {
	// Source feeds the ask CLI: "file" or "microphone".
	Source     string `yaml:"source"`
	FileDir    string `yaml:"file_dir"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	SampleRate int    `yaml:"sample_rate"`
}

type SpeechConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Language    string        `yaml:"language"`
	Timeout     time.Duration `yaml:"timeout"`
	Calibration time.Duration `yaml:"calibration"`
}

type TranslationConfig struct {
	Disabled bool          `yaml:"disabled"`
	BaseURL  string        `yaml:"base_url"`
	Source   string        `yaml:"source"`
	Target   string        `yaml:"target"`
	Email    string        `yaml:"email"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PushoverConfig forwards answers given by the ask CLI to a phone.
type PushoverConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML config at path after loading envFiles (".env" when
// none are given) over the process environment. A missing config file or
// env file is not an error: defaults and the environment apply.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Overload(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", f, err)
		}
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Knowledge.Path == "" {
		c.Knowledge.Path = "data.json"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "file"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.FFmpegPath == "" {
		c.Audio.FFmpegPath = "ffmpeg"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}

	key := os.Getenv(APIKeyEnv)
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = key
	}
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Speech.Model == "" {
		c.Speech.Model = "whisper-large-v3"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "ur-PK"
	}
	if c.Speech.Timeout == 0 {
		c.Speech.Timeout = 30 * time.Second
	}
	if c.Speech.Calibration == 0 {
		c.Speech.Calibration = 500 * time.Millisecond
	}

	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = "https://api.mymemory.translated.net"
	}
	if c.Translation.Source == "" {
		c.Translation.Source = "ur"
	}
	if c.Translation.Target == "" {
		c.Translation.Target = "en"
	}
	if c.Translation.Timeout == 0 {
		c.Translation.Timeout = 10 * time.Second
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.1-8b-instant"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}

	if c.Pushover.BaseURL == "" {
		c.Pushover.BaseURL = "https://api.pushover.net"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be positive, got %d", c.Server.RateLimit))
	}
	switch c.Audio.Source {
	case "file", "microphone":
	default:
		errs = append(errs, fmt.Errorf("audio.source must be file or microphone, got %q", c.Audio.Source))
	}
	if c.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, errors.New("pushover.token and pushover.user_key are required when pushover is enabled"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
