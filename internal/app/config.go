package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cryptochat/internal/protocol/keyexchange"
	"cryptochat/internal/services/coordinator"
	"cryptochat/internal/services/dialer"
	"cryptochat/internal/services/listener"
	"cryptochat/internal/services/session"
	"cryptochat/internal/store"
)

const (
	// DefaultPort is the well-known chat port.
	DefaultPort = dialer.DefaultPort
	configFile  = "config.yaml"
)

// Environment overrides.
const (
	EnvPort        = "CRYPTOCHAT_PORT"
	EnvLogLevel    = "CRYPTOCHAT_LOG_LEVEL"
	EnvCipherSuite = "CRYPTOCHAT_CIPHER_SUITE"
)

// Duration is a time.Duration written as "5s" in YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the on-disk configuration.
type Config struct {
	// Home holds config.yaml and peers.json.
	Home string `yaml:"-"`

	Listen  ListenConfig  `yaml:"listen"`
	Dial    DialConfig    `yaml:"dial"`
	Session SessionConfig `yaml:"session"`
	Confirm ConfirmConfig `yaml:"confirm"`
	Logging LoggingConfig `yaml:"logging"`
}

type ListenConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	BindRetries   int      `yaml:"bind_retries"`
	RetryDelay    Duration `yaml:"retry_delay"`
	RetryMaxDelay Duration `yaml:"retry_max_delay"`
	AcceptRate    float64  `yaml:"accept_rate"`
	AcceptBurst   int      `yaml:"accept_burst"`
}

type DialConfig struct {
	// DefaultPort is dialed when a peer address has no port. It is
	// independent of listen.port.
	DefaultPort    int      `yaml:"default_port"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	MaxAttempts    int      `yaml:"max_attempts"`
}

type SessionConfig struct {
	CipherSuite        string   `yaml:"cipher_suite"`
	RSABits            int      `yaml:"rsa_bits"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	KeyExchangeTimeout Duration `yaml:"key_exchange_timeout"`
	EndNotice          string   `yaml:"end_notice"`
	OutboxSize         int      `yaml:"outbox_size"`
}

type ConfirmConfig struct {
	AutoAccept bool `yaml:"auto_accept"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Listen: ListenConfig{
			Port:          DefaultPort,
			RetryDelay:    Duration(5 * time.Second),
			RetryMaxDelay: Duration(5 * time.Second),
			AcceptRate:    1,
			AcceptBurst:   3,
		},
		Dial: DialConfig{
			DefaultPort:    DefaultPort,
			ConnectTimeout: Duration(5 * time.Second),
		},
		Session: SessionConfig{
			CipherSuite:  string(keyexchange.DefaultSuite),
			RSABits:      2048,
			WriteTimeout: Duration(5 * time.Second),
			EndNotice:    string(session.NoticeAlways),
			OutboxSize:   64,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultHome returns ~/.cryptochat.
func DefaultHome() (string, error) {
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".cryptochat"), nil
}

// ConfigPath returns the config file location under home.
func ConfigPath(home string) string {
	return filepath.Join(home, configFile)
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := store.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("app: read config: %w", err)
	}
	if len(b) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("app: parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path atomically.
func SaveConfig(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(path, b, 0o600)
}

// ApplyEnv overlays environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("app: %s: %w", EnvPort, err)
		}
		c.Listen.Port = p
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvCipherSuite); v != "" {
		c.Session.CipherSuite = v
	}
	return nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("listen.port %d out of range", c.Listen.Port))
	}
	if c.Listen.BindRetries < 0 {
		errs = append(errs, errors.New("listen.bind_retries must not be negative"))
	}
	if c.Listen.RetryDelay <= 0 {
		errs = append(errs, errors.New("listen.retry_delay must be positive"))
	}
	if c.Listen.RetryMaxDelay < 0 {
		errs = append(errs, errors.New("listen.retry_max_delay must not be negative"))
	}
	if c.Listen.AcceptRate < 0 || c.Listen.AcceptBurst < 0 {
		errs = append(errs, errors.New("listen.accept_rate and listen.accept_burst must not be negative"))
	}
	if c.Dial.DefaultPort <= 0 || c.Dial.DefaultPort > 65535 {
		errs = append(errs, fmt.Errorf("dial.default_port %d out of range", c.Dial.DefaultPort))
	}
	if c.Dial.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("dial.connect_timeout must be positive"))
	}
	if c.Dial.MaxAttempts < 0 {
		errs = append(errs, errors.New("dial.max_attempts must not be negative"))
	}
	if _, err := keyexchange.ParseSuite(c.Session.CipherSuite); err != nil {
		errs = append(errs, err)
	}
	if c.Session.RSABits < 2048 {
		errs = append(errs, fmt.Errorf("session.rsa_bits %d is below 2048", c.Session.RSABits))
	}
	if c.Session.WriteTimeout < 0 || c.Session.KeyExchangeTimeout < 0 {
		errs = append(errs, errors.New("session timeouts must not be negative"))
	}
	if _, err := session.ParseEndNotice(c.Session.EndNotice); err != nil {
		errs = append(errs, err)
	}
	if c.Session.OutboxSize < 0 {
		errs = append(errs, errors.New("session.outbox_size must not be negative"))
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("app: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ListenerConfig converts the listen section.
func (c Config) ListenerConfig() listener.Config {
	return listener.Config{
		Address:       JoinHostPort(c.Listen.Host, c.Listen.Port),
		BindRetries:   c.Listen.BindRetries,
		RetryDelay:    time.Duration(c.Listen.RetryDelay),
		RetryMaxDelay: time.Duration(c.Listen.RetryMaxDelay),
		AcceptRate:    c.Listen.AcceptRate,
		AcceptBurst:   c.Listen.AcceptBurst,
	}
}

// CoordinatorConfig converts the dial and session sections. Call Validate
// first.
func (c Config) CoordinatorConfig() coordinator.Config {
	suite, _ := keyexchange.ParseSuite(c.Session.CipherSuite)
	notice, _ := session.ParseEndNotice(c.Session.EndNotice)
	return coordinator.Config{
		Dialer: dialer.Config{
			Port:           c.Dial.DefaultPort,
			ConnectTimeout: time.Duration(c.Dial.ConnectTimeout),
			MaxAttempts:    c.Dial.MaxAttempts,
		},
		Session: session.Config{
			Crypto:             keyexchange.Config{Suite: suite, RSABits: c.Session.RSABits},
			WriteTimeout:       time.Duration(c.Session.WriteTimeout),
			KeyExchangeTimeout: time.Duration(c.Session.KeyExchangeTimeout),
			EndNotice:          notice,
			OutboxSize:         c.Session.OutboxSize,
		},
	}
}
