package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	StdoutTraces bool   `yaml:"stdout_traces"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Interview   InterviewConfig `yaml:"interview"`
	STT         STTConfig       `yaml:"stt"`
	Camera      CameraConfig    `yaml:"camera"`
	UI          UIConfig        `yaml:"ui"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// InterviewConfig controls question sequencing and the completion feedback tiers.
type InterviewConfig struct {
	QuestionBank       string  `yaml:"question_bank"`
	AnswerSeconds      int     `yaml:"answer_seconds"`
	TickIntervalMS     int     `yaml:"tick_interval_ms"`
	ExcellentThreshold float64 `yaml:"excellent_threshold"`
	GoodThreshold      float64 `yaml:"good_threshold"`
}

type STTConfig struct {
	Mode            string   `yaml:"mode"` // scripted, exec, bus, none
	Command         string   `yaml:"command"`
	Language        string   `yaml:"language"`
	Script          []string `yaml:"script"`
	WordIntervalMS  int      `yaml:"word_interval_ms"`
	SessionID       string   `yaml:"session_id"`
	StartTimeoutMS  int      `yaml:"start_timeout_ms"`
	PublishInterim  bool     `yaml:"publish_interim"`
	ContinuousInput bool     `yaml:"continuous"`
}

type CameraConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"` // mock, exec, none
	Command    string `yaml:"command"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FacingMode string `yaml:"facing_mode"`
}

type UIConfig struct {
	NoColor bool `yaml:"no_color"`
	Width   int  `yaml:"width"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-interview",
		Environment: "development",
		HTTP: HTTPConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			LogFile:      "./data/loqa-interview.log",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Interview: InterviewConfig{
			AnswerSeconds:      59,
			TickIntervalMS:     1000,
			ExcellentThreshold: 80,
			GoodThreshold:      60,
		},
		STT: STTConfig{
			Mode:            "scripted",
			Language:        "en-US",
			WordIntervalMS:  250,
			StartTimeoutMS:  2000,
			PublishInterim:  true,
			ContinuousInput: true,
		},
		Camera: CameraConfig{
			Enabled:    true,
			Mode:       "mock",
			Width:      1280,
			Height:     720,
			FacingMode: "user",
		},
		UI: UIConfig{
			Width: 72,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideBool(&cfg.HTTP.Enabled, "LOQA_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFile, "LOQA_TELEMETRY_LOG_FILE")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.StdoutTraces, "LOQA_TELEMETRY_STDOUT_TRACES")
	overrideBool(&cfg.Bus.Enabled, "LOQA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideString(&cfg.Bus.Host, "LOQA_BUS_HOST")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Interview.QuestionBank, "LOQA_INTERVIEW_QUESTION_BANK")
	overrideInt(&cfg.Interview.AnswerSeconds, "LOQA_INTERVIEW_ANSWER_SECONDS")
	overrideInt(&cfg.Interview.TickIntervalMS, "LOQA_INTERVIEW_TICK_INTERVAL_MS")
	overrideFloat(&cfg.Interview.ExcellentThreshold, "LOQA_INTERVIEW_EXCELLENT_THRESHOLD")
	overrideFloat(&cfg.Interview.GoodThreshold, "LOQA_INTERVIEW_GOOD_THRESHOLD")
	overrideString(&cfg.STT.Mode, "LOQA_STT_MODE")
	overrideString(&cfg.STT.Command, "LOQA_STT_COMMAND")
	overrideString(&cfg.STT.Language, "LOQA_STT_LANGUAGE")
	overrideInt(&cfg.STT.WordIntervalMS, "LOQA_STT_WORD_INTERVAL_MS")
	overrideString(&cfg.STT.SessionID, "LOQA_STT_SESSION_ID")
	overrideInt(&cfg.STT.StartTimeoutMS, "LOQA_STT_START_TIMEOUT_MS")
	overrideBool(&cfg.STT.PublishInterim, "LOQA_STT_PUBLISH_INTERIM")
	overrideBool(&cfg.STT.ContinuousInput, "LOQA_STT_CONTINUOUS")
	overrideBool(&cfg.Camera.Enabled, "LOQA_CAMERA_ENABLED")
	overrideString(&cfg.Camera.Mode, "LOQA_CAMERA_MODE")
	overrideString(&cfg.Camera.Command, "LOQA_CAMERA_COMMAND")
	overrideInt(&cfg.Camera.Width, "LOQA_CAMERA_WIDTH")
	overrideInt(&cfg.Camera.Height, "LOQA_CAMERA_HEIGHT")
	overrideString(&cfg.Camera.FacingMode, "LOQA_CAMERA_FACING_MODE")
	overrideBool(&cfg.UI.NoColor, "LOQA_UI_NO_COLOR")
	overrideInt(&cfg.UI.Width, "LOQA_UI_WIDTH")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Enabled && (cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Interview.AnswerSeconds <= 0 {
		return errors.New("interview.answer_seconds must be positive")
	}
	if cfg.Interview.TickIntervalMS <= 0 {
		return errors.New("interview.tick_interval_ms must be positive")
	}
	if cfg.Interview.GoodThreshold < 0 || cfg.Interview.ExcellentThreshold > 100 {
		return errors.New("interview thresholds must lie within 0..100")
	}
	if cfg.Interview.GoodThreshold > cfg.Interview.ExcellentThreshold {
		return errors.New("interview.good_threshold must not exceed interview.excellent_threshold")
	}
	switch cfg.STT.Mode {
	case "scripted", "exec", "bus", "none":
	default:
		return errors.New("stt.mode must be one of scripted|exec|bus|none")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.Mode == "bus" && !cfg.Bus.Enabled {
		return errors.New("stt.mode=bus requires bus.enabled")
	}
	if cfg.STT.WordIntervalMS < 0 {
		return errors.New("stt.word_interval_ms must be >= 0")
	}
	if cfg.Camera.Enabled {
		switch cfg.Camera.Mode {
		case "mock", "exec", "none":
		default:
			return errors.New("camera.mode must be one of mock|exec|none")
		}
		if cfg.Camera.Mode == "exec" && cfg.Camera.Command == "" {
			return errors.New("camera.command must be set when mode=exec")
		}
		if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
			return errors.New("camera.width and camera.height must be positive")
		}
	}
	return nil
}
