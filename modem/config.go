package modem

import (
	"io"
	"log/slog"
	"time"
)

// Config holds the settings for one modem HTTP session.
type Config struct {
	// Dialer opens the transport to the modem. Required.
	Dialer Dialer
	// APN is the access point name used for the PDP context definition.
	APN string
	// AuthUser and AuthPass are the optional PDP authentication credentials.
	AuthUser string
	AuthPass string
	// ContentType is sent via HTTPPARA "CONTENT" for requests with a body.
	ContentType string
	// UserData is an optional extra header line sent via HTTPPARA "USERDATA".
	UserData string
	// UseSSL forces AT+HTTPSSL=1 even for http URLs. https URLs enable
	// SSL regardless.
	UseSSL bool

	// ATTimeout bounds each individual command/response exchange.
	ATTimeout time.Duration
	// ActionTimeout bounds the wait for the asynchronous +HTTPACTION result.
	ActionTimeout time.Duration
	// UploadTimeout bounds the data-upload acknowledgement wait and is the
	// window declared to the modem in AT+HTTPDATA.
	UploadTimeout time.Duration
	// InitTimeout bounds the initial sanity/echo-off sequence.
	InitTimeout time.Duration

	// Logger receives command traces and best-effort diagnostics. Nil
	// discards all output.
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.ContentType == "" {
		c.ContentType = "application/json"
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = 5 * time.Second
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = 10 * time.Second
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = 5 * time.Second
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithAPN(apn string) *ConfigBuilder {
	b.config.APN = apn
	return b
}

func (b *ConfigBuilder) WithAuth(user, pass string) *ConfigBuilder {
	b.config.AuthUser = user
	b.config.AuthPass = pass
	return b
}

func (b *ConfigBuilder) WithContentType(contentType string) *ConfigBuilder {
	b.config.ContentType = contentType
	return b
}

func (b *ConfigBuilder) WithUserData(header string) *ConfigBuilder {
	b.config.UserData = header
	return b
}

func (b *ConfigBuilder) WithSSL(enabled bool) *ConfigBuilder {
	b.config.UseSSL = enabled
	return b
}

func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.ATTimeout = d
	return b
}

func (b *ConfigBuilder) WithActionTimeout(d time.Duration) *ConfigBuilder {
	b.config.ActionTimeout = d
	return b
}

func (b *ConfigBuilder) WithUploadTimeout(d time.Duration) *ConfigBuilder {
	b.config.UploadTimeout = d
	return b
}

func (b *ConfigBuilder) WithInitTimeout(d time.Duration) *ConfigBuilder {
	b.config.InitTimeout = d
	return b
}

func (b *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	b.config.Logger = logger
	return b
}

// Build validates the assembled configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
