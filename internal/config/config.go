// Package config contains configuration of review service.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/labstack/gommon/log"
)

// Version contains version of review service.
var Version = "development"

// Config stores configuration for review service.
type Config struct {
	// DB contains database connection config.
	DB DB `json:"db"`
	// SocketFile contains path to socket with privileged API.
	SocketFile string `json:"socket_file,omitempty"`
	// Server contains API server config.
	Server *Server `json:"server,omitempty"`
	// Executor contains reference executor config.
	Executor *Executor `json:"executor,omitempty"`
	// Review contains review phase config.
	Review Review `json:"review"`
	// LogLevel contains level of logging.
	LogLevel LogLevel `json:"log_level,omitempty"`
}

// Server contains server config.
type Server struct {
	// Host contains server host.
	Host string `json:"host"`
	// Port contains server port.
	Port int `json:"port"`
}

// Address returns string representation of server address.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Executor contains config of reference executor client.
type Executor struct {
	// Endpoint contains base URL of code execution service.
	Endpoint string `json:"endpoint"`
	// Timeout contains timeout of one reference run.
	Timeout Duration `json:"timeout,omitempty"`
	// MaxConcurrency limits amount of outstanding runs.
	MaxConcurrency int64 `json:"max_concurrency,omitempty"`
	// RateLimit limits amount of runs per second (0 means unlimited).
	RateLimit float64 `json:"rate_limit,omitempty"`
}

// GetTimeout returns timeout of one reference run.
func (e Executor) GetTimeout() time.Duration {
	if e.Timeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.Timeout)
}

// GetMaxConcurrency returns limit of outstanding runs.
func (e Executor) GetMaxConcurrency() int64 {
	if e.MaxConcurrency <= 0 {
		return 8
	}
	return e.MaxConcurrency
}

// Review contains config of review phase.
type Review struct {
	// HandleKey contains key for pseudonym derivation.
	HandleKey string `json:"handle_key,omitempty"`
	// ExecutorRetries contains amount of additional attempts
	// when executor is unavailable.
	ExecutorRetries int `json:"executor_retries,omitempty"`
	// RetryBackoff contains initial delay between attempts.
	RetryBackoff Duration `json:"retry_backoff,omitempty"`
	// ReviewsPerSolver contains default amount of reviews per participant.
	ReviewsPerSolver int `json:"reviews_per_solver,omitempty"`
}

// GetRetryBackoff returns initial delay between executor attempts.
func (r Review) GetRetryBackoff() time.Duration {
	if r.RetryBackoff <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.RetryBackoff)
}

// GetReviewsPerSolver returns amount of reviews per participant.
func (r Review) GetReviewsPerSolver() int {
	if r.ReviewsPerSolver <= 0 {
		return 3
	}
	return r.ReviewsPerSolver
}

// Duration represents duration that is encoded as string in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LogLevel represents level of logging.
type LogLevel log.Lvl

func (l LogLevel) MarshalText() ([]byte, error) {
	switch log.Lvl(l) {
	case log.DEBUG:
		return []byte("debug"), nil
	case log.INFO:
		return []byte("info"), nil
	case log.WARN:
		return []byte("warn"), nil
	case log.ERROR:
		return []byte("error"), nil
	case log.OFF:
		return []byte("off"), nil
	default:
		return nil, fmt.Errorf("unknown level: %d", l)
	}
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(string(text)); s {
	case "debug":
		*l = LogLevel(log.DEBUG)
	case "info":
		*l = LogLevel(log.INFO)
	case "warn":
		*l = LogLevel(log.WARN)
	case "error":
		*l = LogLevel(log.ERROR)
	case "off":
		*l = LogLevel(log.OFF)
	default:
		return fmt.Errorf("unknown level: %q", s)
	}
	return nil
}

var templateFuncs = template.FuncMap{
	"json": func(value any) (string, error) {
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
	"file": func(name string) (string, error) {
		bytes, err := os.ReadFile(name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(bytes), "\r\n"), nil
	},
	"env": func(name string) (string, error) {
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %q does not exist", name)
		}
		return value, nil
	},
}

// LoadFromFile loads configuration from json template file.
//
// Template supports following functions:
//   - json: encodes value as JSON;
//   - file: reads secret from file;
//   - env: reads value of environment variable.
func LoadFromFile(file string) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, err
	}
	tmpl, err := template.New("config").
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return Config{}, err
	}
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, map[string]any{}); err != nil {
		return Config{}, err
	}
	cfg := Config{
		LogLevel: LogLevel(log.INFO),
	}
	if err := json.Unmarshal(buffer.Bytes(), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
