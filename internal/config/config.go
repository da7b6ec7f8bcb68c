// Package config loads assistant configuration from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full assistant configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Audio         AudioConfig         `yaml:"audio"`
	Silence       SilenceConfig       `yaml:"silence"`
	STT           STTConfig           `yaml:"stt"`
	LLM           LLMConfig           `yaml:"llm"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Store         StoreConfig         `yaml:"store"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal string `yaml:"principal"`
	GRPCPort  string `yaml:"grpc_port"`
	HTTPPort  string `yaml:"http_port"`
}

// AudioConfig selects and shapes the capture source.
type AudioConfig struct {
	Source        string `yaml:"source"` // portaudio, wav
	DeviceName    string `yaml:"device_name"`
	WAVPath       string `yaml:"wav_path"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	FrameSize     int    `yaml:"frame_size"` // samples per channel per frame
	FramesPerRead int    `yaml:"frames_per_read"`
	Normalize     bool   `yaml:"normalize"`
}

// SilenceConfig controls classification and segmentation.
type SilenceConfig struct {
	Mode                  string        `yaml:"mode"` // fixed, calibrated
	Threshold             float64       `yaml:"threshold"`
	CalibrationFrames     int           `yaml:"calibration_frames"`
	CalibrationMultiplier float64       `yaml:"calibration_multiplier"`
	CalibrationFloor      float64       `yaml:"calibration_floor"`
	PauseDuration         time.Duration `yaml:"pause_duration"`
	FlushOnStop           bool          `yaml:"flush_on_stop"`
}

type STTConfig struct {
	Provider        string `yaml:"provider"` // mock, google
	LanguageCode    string `yaml:"language_code"`
	AudioEncoding   string `yaml:"audio_encoding"`
	CredentialsFile string `yaml:"credentials_file"`
	TempDir         string `yaml:"temp_dir"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider"` // mock, openai
	APIKey    string        `yaml:"-"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicQuestions string   `yaml:"topic_questions"`
	TopicAnswers   string   `yaml:"topic_answers"`
	Principal      string   `yaml:"principal"`
}

// StoreConfig points at the SQLite history database. An empty path
// disables history.
type StoreConfig struct {
	Path string `yaml:"path"`
}

type DispatchConfig struct {
	QueueSize         int `yaml:"queue_size"`
	AnswerConcurrency int `yaml:"answer_concurrency"`
	UpdateBuffer      int `yaml:"update_buffer"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration the assistant ships with.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-interview-assistant",
			GRPCPort:  "50051",
			HTTPPort:  "8080",
		},
		Audio: AudioConfig{
			Source:        "portaudio",
			SampleRate:    48000,
			Channels:      1,
			FrameSize:     2048,
			FramesPerRead: 1,
		},
		Silence: SilenceConfig{
			Mode:                  "calibrated",
			Threshold:             30,
			CalibrationFrames:     10,
			CalibrationMultiplier: 1.5,
			CalibrationFloor:      30,
			PauseDuration:         2 * time.Second,
		},
		STT: STTConfig{
			Provider:      "mock",
			LanguageCode:  "en-US",
			AudioEncoding: "LINEAR16",
		},
		LLM: LLMConfig{
			Provider:  "mock",
			Model:     "gpt-4",
			MaxTokens: 150,
			Timeout:   30 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			TopicQuestions: "interview.questions",
			TopicAnswers:   "interview.answers",
		},
		Store: StoreConfig{
			Path: "interview-assistant.db",
		},
		Dispatch: DispatchConfig{
			QueueSize:         16,
			AnswerConcurrency: 4,
			UpdateBuffer:      64,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load returns defaults overlaid with environment variables.
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies the
// environment on top.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.GRPCPort = envOrDefault("GRPC_PORT", cfg.Service.GRPCPort)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)

	cfg.Audio.Source = envOrDefault("AUDIO_SOURCE", cfg.Audio.Source)
	cfg.Audio.DeviceName = envOrDefault("AUDIO_DEVICE_NAME", cfg.Audio.DeviceName)
	cfg.Audio.WAVPath = envOrDefault("AUDIO_WAV_PATH", cfg.Audio.WAVPath)
	cfg.Audio.SampleRate = envOrDefaultInt("AUDIO_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("AUDIO_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.FrameSize = envOrDefaultInt("AUDIO_FRAME_SIZE", cfg.Audio.FrameSize)
	cfg.Audio.FramesPerRead = envOrDefaultInt("AUDIO_FRAMES_PER_READ", cfg.Audio.FramesPerRead)
	cfg.Audio.Normalize = envOrDefaultBool("AUDIO_NORMALIZE", cfg.Audio.Normalize)

	cfg.Silence.Mode = envOrDefault("SILENCE_MODE", cfg.Silence.Mode)
	cfg.Silence.Threshold = envOrDefaultFloat("SILENCE_THRESHOLD", cfg.Silence.Threshold)
	cfg.Silence.CalibrationFrames = envOrDefaultInt("SILENCE_CALIBRATION_FRAMES", cfg.Silence.CalibrationFrames)
	cfg.Silence.CalibrationMultiplier = envOrDefaultFloat("SILENCE_CALIBRATION_MULTIPLIER", cfg.Silence.CalibrationMultiplier)
	cfg.Silence.CalibrationFloor = envOrDefaultFloat("SILENCE_CALIBRATION_FLOOR", cfg.Silence.CalibrationFloor)
	cfg.Silence.PauseDuration = envOrDefaultDuration("SILENCE_PAUSE_DURATION", cfg.Silence.PauseDuration)
	cfg.Silence.FlushOnStop = envOrDefaultBool("SILENCE_FLUSH_ON_STOP", cfg.Silence.FlushOnStop)

	cfg.STT.Provider = envOrDefault("STT_PROVIDER", cfg.STT.Provider)
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", cfg.STT.AudioEncoding)
	cfg.STT.CredentialsFile = envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", cfg.STT.CredentialsFile)
	cfg.STT.TempDir = envOrDefault("STT_TEMP_DIR", cfg.STT.TempDir)

	cfg.LLM.Provider = envOrDefault("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.APIKey = envOrDefault("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = envOrDefault("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = envOrDefault("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.MaxTokens = envOrDefaultInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Timeout = envOrDefaultDuration("LLM_TIMEOUT", cfg.LLM.Timeout)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicQuestions = envOrDefault("KAFKA_TOPIC_QUESTIONS", cfg.Kafka.TopicQuestions)
	cfg.Kafka.TopicAnswers = envOrDefault("KAFKA_TOPIC_ANSWERS", cfg.Kafka.TopicAnswers)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}

	cfg.Store.Path = envOrDefault("STORE_PATH", cfg.Store.Path)

	cfg.Dispatch.QueueSize = envOrDefaultInt("DISPATCH_QUEUE_SIZE", cfg.Dispatch.QueueSize)
	cfg.Dispatch.AnswerConcurrency = envOrDefaultInt("DISPATCH_ANSWER_CONCURRENCY", cfg.Dispatch.AnswerConcurrency)
	cfg.Dispatch.UpdateBuffer = envOrDefaultInt("SESSION_UPDATE_BUFFER", cfg.Dispatch.UpdateBuffer)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Observability.MetricsAddr)
}

// Validate rejects parameters the capture loop cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Audio.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size must be positive, got %d", c.Audio.FrameSize))
	}
	if c.Audio.FramesPerRead < 1 {
		errs = append(errs, fmt.Errorf("audio.frames_per_read must be at least 1, got %d", c.Audio.FramesPerRead))
	}
	switch c.Audio.Source {
	case "portaudio":
	case "wav":
		if c.Audio.WAVPath == "" {
			errs = append(errs, errors.New("audio.wav_path is required for the wav source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audio.source %q", c.Audio.Source))
	}

	switch c.Silence.Mode {
	case "fixed":
		if c.Silence.Threshold < 0 {
			errs = append(errs, fmt.Errorf("silence.threshold must not be negative, got %v", c.Silence.Threshold))
		}
	case "calibrated":
		if c.Silence.CalibrationFrames <= 0 {
			errs = append(errs, fmt.Errorf("silence.calibration_frames must be positive, got %d", c.Silence.CalibrationFrames))
		}
		if c.Silence.CalibrationMultiplier <= 0 {
			errs = append(errs, fmt.Errorf("silence.calibration_multiplier must be positive, got %v", c.Silence.CalibrationMultiplier))
		}
		if c.Silence.CalibrationFloor < 0 {
			errs = append(errs, fmt.Errorf("silence.calibration_floor must not be negative, got %v", c.Silence.CalibrationFloor))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown silence.mode %q", c.Silence.Mode))
	}
	if c.Silence.PauseDuration < 0 {
		errs = append(errs, fmt.Errorf("silence.pause_duration must not be negative, got %v", c.Silence.PauseDuration))
	}

	if c.Dispatch.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.queue_size must be positive, got %d", c.Dispatch.QueueSize))
	}
	if c.Dispatch.AnswerConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.answer_concurrency must be positive, got %d", c.Dispatch.AnswerConcurrency))
	}
	if c.Dispatch.UpdateBuffer <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.update_buffer must be positive, got %d", c.Dispatch.UpdateBuffer))
	}

	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
