package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minJWTKeyLen = 32
)

type Config struct {
	AppEnv  string
	AppPort string

	DBDriver  string
	DBHost    string
	DBPort    string
	DBName    string
	DBUser    string
	DBPass    string
	DBMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempTTLSecs int

	JWTKey      string
	JWTIssuer   string
	JWTAudience string
	JWTTTLMins  int

	CORSOrigins []string
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "mysql")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "loans")
	v.SetDefault("DB_USER", "loans")
	v.SetDefault("DB_PASS", "loans")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("REDIS_ADDR", "redis:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL_SECONDS", 300)
	v.SetDefault("JWT_KEY", "")
	v.SetDefault("JWT_ISSUER", "loan-service")
	v.SetDefault("JWT_AUDIENCE", "loan-service-clients")
	v.SetDefault("JWT_TTL_MINUTES", 120)
	v.SetDefault("CORS_ORIGINS", "http://localhost:4200,http://localhost:5173")
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		AppEnv:  strings.ToLower(v.GetString("APP_ENV")),
		AppPort: v.GetString("APP_PORT"),

		DBDriver:  strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:    v.GetString("DB_HOST"),
		DBPort:    v.GetString("DB_PORT"),
		DBName:    v.GetString("DB_NAME"),
		DBUser:    v.GetString("DB_USER"),
		DBPass:    v.GetString("DB_PASS"),
		DBMigrate: v.GetBool("DB_MIGRATE"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		IdempTTLSecs: v.GetInt("IDEMPOTENCY_TTL_SECONDS"),

		JWTKey:      v.GetString("JWT_KEY"),
		JWTIssuer:   v.GetString("JWT_ISSUER"),
		JWTAudience: v.GetString("JWT_AUDIENCE"),
		JWTTTLMins:  v.GetInt("JWT_TTL_MINUTES"),

		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		return fmt.Errorf("invalid DB_DRIVER %q (want mysql or postgres)", c.DBDriver)
	}
	if c.DBHost == "" || c.DBPort == "" || c.DBName == "" || c.DBUser == "" {
		return errors.New("missing database config (DB_HOST/PORT/NAME/USER)")
	}
	if _, err := net.LookupPort("tcp", c.DBPort); err != nil {
		return fmt.Errorf("invalid DB_PORT %q: %w", c.DBPort, err)
	}
	if c.RedisAddr == "" {
		return errors.New("missing REDIS_ADDR")
	}
	if c.IdempTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS must be greater than 0")
	}
	if len(c.JWTKey) < minJWTKeyLen {
		return fmt.Errorf("JWT_KEY must be at least %d bytes", minJWTKeyLen)
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return errors.New("missing JWT_ISSUER/JWT_AUDIENCE")
	}
	if c.JWTTTLMins <= 0 {
		return errors.New("JWT_TTL_MINUTES must be greater than 0")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) TokenTTL() time.Duration { return time.Duration(c.JWTTTLMins) * time.Minute }

func (c *Config) dbAddr() string { return net.JoinHostPort(c.DBHost, c.DBPort) }

// DSN is the connection string for the gorm dialector of DBDriver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
	}
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.DBUser, c.DBPass, c.dbAddr(), c.DBName)
}

// MigrateURL is the golang-migrate database URL for DBDriver.
func (c *Config) MigrateURL() string {
	if c.DBDriver == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPass),
			Host:     c.dbAddr(),
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	}
	// credentials are URL-encoded; the mysql migrate driver decodes them
	return fmt.Sprintf("mysql://%s:%s@tcp(%s)/%s?multiStatements=true",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPass), c.dbAddr(), c.DBName)
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
