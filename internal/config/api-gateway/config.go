package api_gateway_config

import (
	"time"

	"github.com/NordCoder/crewcruise/internal/auth"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/NordCoder/crewcruise/internal/outbox"
	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	ActionSecret  string        `mapstructure:"action_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	ActionTTL     time.Duration `mapstructure:"action_ttl"`
	Issuer        string        `mapstructure:"issuer"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`

	// LinkBaseURL prefixes the verify and reset links sent by email.
	LinkBaseURL string `mapstructure:"link_base_url"`
	// ConcealUnknownEmail makes forgot-password answer the same for unknown addresses.
	ConcealUnknownEmail bool `mapstructure:"conceal_unknown_email"`

	CookieName   string `mapstructure:"cookie_name"`
	CookieDomain string `mapstructure:"cookie_domain"`
	CookiePath   string `mapstructure:"cookie_path"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

func (a *Auth) AsTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  []byte(a.AccessSecret),
		RefreshSecret: []byte(a.RefreshSecret),
		ActionSecret:  []byte(a.ActionSecret),
		AccessTTL:     a.AccessTTL,
		RefreshTTL:    a.RefreshTTL,
		ActionTTL:     a.ActionTTL,
		Issuer:        a.Issuer,
	}
}

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App    App                 `mapstructure:"app"`
	Server Server              `mapstructure:"server"`
	DB     pg.Config           `mapstructure:"db"`
	OTEL   OTEL                `mapstructure:"otel"`
	Log    Log                 `mapstructure:"log"`
	Auth   Auth                `mapstructure:"auth"`
	Kafka  KafkaOut            `mapstructure:"kafka_out"`
	Outbox outbox.RunnerConfig `mapstructure:"outbox"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
