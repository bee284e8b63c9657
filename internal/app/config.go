package app

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"qchat/internal/domain"
)

const (
	// ConfigFileName is the config file looked up in the home directory.
	ConfigFileName = "qchat.toml"

	defaultAPIURL         = "http://localhost:8000"
	defaultRequestTimeout = 30 * time.Second
	defaultLogLevel       = "info"
)

// Server is the backend location.
type Server struct {
	// APIURL is the base URL of the REST endpoints.
	APIURL string
	// WebSocketURL overrides the channel base URL. Derived from APIURL when
	// empty.
	WebSocketURL string
	// RequestTimeout bounds each REST call and the channel dial.
	RequestTimeout string
}

// Timeout returns RequestTimeout parsed. Call after FixupAndValidate.
func (s *Server) Timeout() time.Duration {
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

func (s *Server) validate() error {
	u, err := url.Parse(s.APIURL)
	if err != nil {
		return fmt.Errorf("config: Server: APIURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("config: Server: APIURL %q is not an http(s) URL", s.APIURL)
	}
	if s.WebSocketURL != "" {
		u, err := url.Parse(s.WebSocketURL)
		if err != nil {
			return fmt.Errorf("config: Server: WebSocketURL: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" || u.Host == "" {
			return fmt.Errorf("config: Server: WebSocketURL %q is not a ws(s) URL", s.WebSocketURL)
		}
	}
	if d, err := time.ParseDuration(s.RequestTimeout); err != nil || d <= 0 {
		return fmt.Errorf("config: Server: invalid RequestTimeout %q", s.RequestTimeout)
	}
	return nil
}

func (s *Server) applyDefaults() {
	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
	}
	if s.RequestTimeout == "" {
		s.RequestTimeout = defaultRequestTimeout.String()
	}
}

// Protocol holds the defaults of the key-exchange form. They are sent to the
// backend as given.
type Protocol struct {
	KeyLength        uint
	EnableEve        bool
	EveInterceptProb float64
	QBERThreshold    float64
}

// ProtocolConfig converts p to the wire form.
func (p *Protocol) ProtocolConfig() domain.ProtocolConfig {
	return domain.ProtocolConfig{
		KeyLength:        p.KeyLength,
		EnableEve:        p.EnableEve,
		EveInterceptProb: p.EveInterceptProb,
		QBERThreshold:    p.QBERThreshold,
	}
}

func (p *Protocol) validate() error {
	if p.EveInterceptProb < 0 || p.EveInterceptProb > 1 {
		return fmt.Errorf("config: Protocol: EveInterceptProb %v is outside [0, 1]", p.EveInterceptProb)
	}
	if p.QBERThreshold < 0 || p.QBERThreshold > domain.MaxQBERThreshold {
		return fmt.Errorf("config: Protocol: QBERThreshold %v is outside [0, %v]", p.QBERThreshold, domain.MaxQBERThreshold)
	}
	return nil
}

// Logging is the logging configuration.
type Logging struct {
	// Disable discards all log output.
	Disable bool
	// File is the log file. Empty means stderr.
	File string
	// Level is one of debug, info, warn, error.
	Level string
}

func (l *Logging) validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("config: Logging: %w", err)
	}
	return nil
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Address to serve /metrics on. Empty disables it.
	Address string
}

// Config is the top level qchat configuration.
type Config struct {
	Server   *Server
	Protocol *Protocol
	Logging  *Logging
	Metrics  *Metrics
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.FixupAndValidate(); err != nil {
		panic(err)
	}
	return cfg
}

// FixupAndValidate fills in defaults for missing sections and fields and
// checks the result.
func (c *Config) FixupAndValidate() error {
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Protocol == nil {
		d := domain.DefaultProtocolConfig()
		c.Protocol = &Protocol{
			KeyLength:        d.KeyLength,
			EnableEve:        d.EnableEve,
			EveInterceptProb: d.EveInterceptProb,
			QBERThreshold:    d.QBERThreshold,
		}
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}

	c.Server.applyDefaults()
	if c.Protocol.KeyLength == 0 {
		c.Protocol.KeyLength = domain.DefaultProtocolConfig().KeyLength
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Protocol.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

// LoadFileOrDefault is LoadFile, except that a missing file yields Default.
func LoadFileOrDefault(f string) (*Config, error) {
	cfg, err := LoadFile(f)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
