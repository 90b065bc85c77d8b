package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
	SeedBadges   bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	LogLevel  string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// StreakTTLMinutes bounds how long a cached streak fold is trusted.
	StreakTTLMinutes int `mapstructure:"streak_ttl_minutes"`
}

// ScoringConfig holds the tunables of the scoring engine. It can be reloaded
// at runtime.
type ScoringConfig struct {
	XPPerLevel              int            `mapstructure:"xp_per_level"`
	DefaultTimeLimitSeconds int            `mapstructure:"default_time_limit_seconds"`
	DefaultQuestionPoints   int            `mapstructure:"default_question_points"`
	Ordering                OrderingConfig `mapstructure:"ordering"`
}

type OrderingConfig struct {
	NearThreshold      int     `mapstructure:"near_threshold"`
	FarThreshold       int     `mapstructure:"far_threshold"`
	SoftFactor         float64 `mapstructure:"soft_factor"`
	WeightInversions   float64 `mapstructure:"weight_inversions"`
	WeightDisplacement float64 `mapstructure:"weight_displacement"`
	WeightExact        float64 `mapstructure:"weight_exact"`
	Alpha              float64 `mapstructure:"alpha"`
}

// DefaultScoring mirrors the defaults registered with viper.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		XPPerLevel:              1000,
		DefaultTimeLimitSeconds: 60,
		DefaultQuestionPoints:   10,
		Ordering: OrderingConfig{
			NearThreshold:      1,
			FarThreshold:       3,
			SoftFactor:         0.5,
			WeightInversions:   1.0 / 3,
			WeightDisplacement: 1.0 / 3,
			WeightExact:        1.0 / 3,
			Alpha:              0.9,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultScoring()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("redis.streak_ttl_minutes", 60)
	v.SetDefault("tracing.service_name", "progression-engine")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("scoring.xp_per_level", d.XPPerLevel)
	v.SetDefault("scoring.default_time_limit_seconds", d.DefaultTimeLimitSeconds)
	v.SetDefault("scoring.default_question_points", d.DefaultQuestionPoints)
	v.SetDefault("scoring.ordering.near_threshold", d.Ordering.NearThreshold)
	v.SetDefault("scoring.ordering.far_threshold", d.Ordering.FarThreshold)
	v.SetDefault("scoring.ordering.soft_factor", d.Ordering.SoftFactor)
	v.SetDefault("scoring.ordering.weight_inversions", d.Ordering.WeightInversions)
	v.SetDefault("scoring.ordering.weight_displacement", d.Ordering.WeightDisplacement)
	v.SetDefault("scoring.ordering.weight_exact", d.Ordering.WeightExact)
	v.SetDefault("scoring.ordering.alpha", d.Ordering.Alpha)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PROGRESSION")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Scoring
	v.BindEnv("scoring.xp_per_level", "XP_PER_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the engine cannot work with.
func (s ScoringConfig) Validate() error {
	if s.XPPerLevel < 1 {
		return fmt.Errorf("scoring.xp_per_level must be >= 1, got %d", s.XPPerLevel)
	}
	if s.DefaultTimeLimitSeconds < 0 {
		return fmt.Errorf("scoring.default_time_limit_seconds must be >= 0, got %d", s.DefaultTimeLimitSeconds)
	}
	o := s.Ordering
	if o.WeightInversions < 0 || o.WeightDisplacement < 0 || o.WeightExact < 0 {
		return fmt.Errorf("scoring.ordering weights must not be negative")
	}
	if o.SoftFactor < 0 || o.SoftFactor > 1 {
		return fmt.Errorf("scoring.ordering.soft_factor must be within [0,1], got %v", o.SoftFactor)
	}
	return nil
}
