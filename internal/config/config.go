package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the assistant.
type Config struct {
	Deepgram  DeepgramConfig  `yaml:"deepgram"`
	Audio     AudioConfig     `yaml:"audio"`
	Rules     RulesConfig     `yaml:"rules"`
	Assistant AssistantConfig `yaml:"assistant"`
	Browser   BrowserConfig   `yaml:"browser"`
	Log       LogConfig       `yaml:"log"`
	Window    WindowConfig    `yaml:"window"`
}

type DeepgramConfig struct {
	APIKey        string `yaml:"api_key"`
	APIBaseURL    string `yaml:"api_base"`
	Model         string `yaml:"model"`
	Language      string `yaml:"language"`
	SmartFormat   bool   `yaml:"smart_format"`
	EndpointingMs int    `yaml:"endpointing_ms"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkSize       int    `yaml:"chunk_size"`
}

type RulesConfig struct {
	// Path to the transcript correction rules; watched for changes.
	Path      string `yaml:"path"`
	PassLimit int    `yaml:"pass_limit"`
}

// AssistantConfig holds wake/command tuning. Durations are Go duration strings.
type AssistantConfig struct {
	Language       string            `yaml:"language"`
	Awake          string            `yaml:"awake_timeout"`
	Watchdog       string            `yaml:"watchdog_interval"`
	Probe          string            `yaml:"probe_timeout"`
	Action         string            `yaml:"action_timeout"`
	NoSpeech       string            `yaml:"no_speech_timeout"`
	FailureCeiling int               `yaml:"failure_ceiling"`
	WakePhrases    []string          `yaml:"wake_phrases"`
	WakePatterns   []string          `yaml:"wake_patterns"`
	Sites          map[string]string `yaml:"sites"`
}

// BrowserConfig configures how Rod attaches to or launches Chrome.
type BrowserConfig struct {
	// ControlURL attaches to a running Chrome (ws://127.0.0.1:9222/...). Empty launches one.
	ControlURL  string `yaml:"control_url"`
	Bin         string `yaml:"bin"`
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	StartURL    string `yaml:"start_url"`
	Overlay     bool   `yaml:"overlay"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

type WindowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// DefaultConfig returns the stock configuration rooted at home.
func DefaultConfig(home string) Config {
	dir := filepath.Join(home, ".config", "senseai")
	return Config{
		Deepgram: DeepgramConfig{
			APIBaseURL:    "https://api.deepgram.com/v1",
			Model:         "nova-2",
			SmartFormat:   true,
			EndpointingMs: 300,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
			ChunkSize:       4096,
		},
		Rules: RulesConfig{
			Path:      filepath.Join(dir, "corrections.rules"),
			PassLimit: 30,
		},
		Assistant: AssistantConfig{
			Language:       "en-US",
			Awake:          "30s",
			Watchdog:       "20s",
			Probe:          "5s",
			Action:         "15s",
			NoSpeech:       "8s",
			FailureCeiling: 5,
		},
		Browser: BrowserConfig{
			StartURL: "https://www.youtube.com",
			Overlay:  true,
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "senseai.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Console:    true,
		},
		Window: WindowConfig{
			Enabled: true,
			Title:   "SenseAI",
			Width:   360,
			Height:  220,
		},
	}
}

// Load resolves configuration in layers:
//
//	DefaultConfig() <- YAML file <- .env file <- process environment
//
// path selects the YAML file; when empty SENSEAI_CONFIG and then
// ~/.config/senseai/config.yaml are tried. A missing default file is not an error.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	cfg := DefaultConfig(home)

	explicit := strings.TrimSpace(path) != "" || strings.TrimSpace(os.Getenv("SENSEAI_CONFIG")) != ""
	path = firstNonEmpty(path, os.Getenv("SENSEAI_CONFIG"), filepath.Join(home, ".config", "senseai", "config.yaml"))
	if err := overlayYAML(&cfg, path, explicit); err != nil {
		return cfg, err
	}

	env, err := loadEnvironment(firstNonEmpty(os.Getenv("SENSEAI_ENV_FILE"), ".env"))
	if err != nil {
		return cfg, err
	}
	env.apply(&cfg)

	return cfg, cfg.Validate()
}

func overlayYAML(cfg *Config, path string, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// environment resolves keys from the process first and the .env file second.
type environment struct {
	dotenv map[string]string
}

func loadEnvironment(path string) (environment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return environment{}, nil
		}
		return environment{}, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return environment{dotenv: values}, nil
}

func (e environment) lookup(key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(e.dotenv[key])
}

func (e environment) apply(cfg *Config) {
	cfg.Deepgram.APIKey = e.envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = e.envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = e.envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = e.envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = e.envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)
	cfg.Deepgram.EndpointingMs = e.envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", cfg.Deepgram.EndpointingMs)

	cfg.Audio.RecorderCommand = e.envOrDefault("SENSEAI_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = e.envOrDefault("SENSEAI_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(
		e.lookup("SENSEAI_AUDIO_INPUT_DEVICE"),
		e.lookup("DEEPGRAM_PULSE_SOURCE"),
		cfg.Audio.InputDevice,
	)
	cfg.Audio.SampleRate = e.envOrDefaultInt("SENSEAI_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = e.envOrDefaultInt("SENSEAI_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = e.envOrDefaultInt("SENSEAI_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Rules.Path = e.envOrDefault("SENSEAI_RULES_FILE", cfg.Rules.Path)
	cfg.Rules.PassLimit = e.envOrDefaultInt("SENSEAI_RULE_PASS_LIMIT", cfg.Rules.PassLimit)

	cfg.Assistant.Language = e.envOrDefault("SENSEAI_LANGUAGE", cfg.Assistant.Language)
	cfg.Assistant.Awake = e.envOrDefault("SENSEAI_AWAKE_TIMEOUT", cfg.Assistant.Awake)
	cfg.Assistant.FailureCeiling = e.envOrDefaultInt("SENSEAI_FAILURE_CEILING", cfg.Assistant.FailureCeiling)
	if phrases := e.lookup("SENSEAI_WAKE_PHRASES"); phrases != "" {
		cfg.Assistant.WakePhrases = splitList(phrases)
	}

	cfg.Browser.ControlURL = e.envOrDefault("SENSEAI_BROWSER_URL", cfg.Browser.ControlURL)
	cfg.Browser.Bin = e.envOrDefault("SENSEAI_CHROME_BIN", cfg.Browser.Bin)
	cfg.Browser.Headless = e.envOrDefaultBool("SENSEAI_HEADLESS", cfg.Browser.Headless)
	cfg.Browser.StartURL = e.envOrDefault("SENSEAI_START_URL", cfg.Browser.StartURL)

	cfg.Log.Level = e.envOrDefault("SENSEAI_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = e.envOrDefault("SENSEAI_LOG_FILE", cfg.Log.File)

	cfg.Window.Enabled = e.envOrDefaultBool("SENSEAI_WINDOW", cfg.Window.Enabled)
}

// Validate rejects values the assistant cannot start with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if c.Audio.ChunkSize < 256 {
		return errors.New("audio.chunk_size must be at least 256")
	}
	if c.Rules.PassLimit <= 0 {
		return errors.New("rules.pass_limit must be positive")
	}
	if c.Assistant.FailureCeiling <= 0 {
		return errors.New("assistant.failure_ceiling must be positive")
	}
	for name, value := range map[string]string{
		"assistant.awake_timeout":     c.Assistant.Awake,
		"assistant.watchdog_interval": c.Assistant.Watchdog,
		"assistant.probe_timeout":     c.Assistant.Probe,
		"assistant.action_timeout":    c.Assistant.Action,
		"assistant.no_speech_timeout": c.Assistant.NoSpeech,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("%s: invalid duration %q", name, value)
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// AwakeTimeout returns how long the assistant stays awake without a command.
func (a AssistantConfig) AwakeTimeout() time.Duration {
	return parseDuration(a.Awake, 30*time.Second)
}

// WatchdogInterval returns the idle-recovery check period.
func (a AssistantConfig) WatchdogInterval() time.Duration {
	return parseDuration(a.Watchdog, 20*time.Second)
}

func (a AssistantConfig) ProbeTimeout() time.Duration {
	return parseDuration(a.Probe, 5*time.Second)
}

func (a AssistantConfig) ActionTimeout() time.Duration {
	return parseDuration(a.Action, 15*time.Second)
}

func (a AssistantConfig) NoSpeechTimeout() time.Duration {
	return parseDuration(a.NoSpeech, 8*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (e environment) envOrDefault(key string, fallback string) string {
	value := e.lookup(key)
	if value == "" {
		return fallback
	}
	return value
}

func (e environment) envOrDefaultInt(key string, fallback int) int {
	value := e.lookup(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (e environment) envOrDefaultBool(key string, fallback bool) bool {
	switch strings.ToLower(e.lookup(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
