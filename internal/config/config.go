package config

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Tokens   TokenConfig    `env:",prefix=TOKEN_"`
	Session  SessionConfig  `env:",prefix=SESSION_"`
	OAuth    OAuthConfig    `env:",prefix=OAUTH_"`
	SMTP     SMTPConfig     `env:",prefix=SMTP_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	App      AppConfig      `env:",prefix=APP_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=account_service"`
	Password       string `env:"PASSWORD,default=account_service_password"`
	DBName         string `env:"DB,default=account_service_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig keys the sealed-token codec. The secret signs every
// client-visible envelope: action links and session cookies.
type JWTConfig struct {
	Secret string `env:"SECRET,required"`
}

// TokenConfig sets the lifetime of each credential token family.
// Reactivation is deliberately short: it is the most sensitive self-unlock
// action and its links leak most easily through email.
type TokenConfig struct {
	VerificationTTL Duration `env:"VERIFICATION_TTL,default=24h"`
	ResetTTL        Duration `env:"RESET_TTL,default=4h"`
	ReactivationTTL Duration `env:"REACTIVATION_TTL,default=5m"`
}

type SessionConfig struct {
	TTL          Duration `env:"TTL,default=30d"`
	CookieName   string   `env:"COOKIE_NAME,default=sid"`
	CookieSecure bool     `env:"COOKIE_SECURE,default=false"`
}

type OAuthConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,default="`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,default="`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,default="`
}

// Enabled reports whether Google sign-in is configured
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

type SMTPConfig struct {
	Host     string `env:"HOST,default="`
	Port     string `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@localhost"`
	FromName string `env:"FROM_NAME,default=Account Service"`
}

// Enabled reports whether outbound SMTP delivery is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// AppConfig carries client-facing settings: ClientURL is the web frontend
// base used to build verification/recovery/reactivation links.
type AppConfig struct {
	ClientURL string `env:"CLIENT_URL,default=http://localhost:3000"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(p.User), url.QueryEscape(p.Password), p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
