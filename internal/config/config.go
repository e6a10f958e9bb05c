package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	Location         *time.Location
	LogLevel         zerolog.Level
	DatabaseDriver   string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventsChannel    string
	JWTSecret        string
	CalendarCacheTTL time.Duration
	BreakMinutes     int
	MinChunkMinutes  int
	DayEndMinutes    int
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// DefaultPolicy returns the scheduling policy applied to users without overrides.
func (c Config) DefaultPolicy() scheduler.Policy {
	return scheduler.Policy{
		BreakTime:        c.BreakMinutes,
		MinChunkDuration: c.MinChunkMinutes,
		DayEnd:           c.DayEndMinutes,
	}
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HWPLAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "HWPlan API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.channel", "hwplan")
	v.SetDefault("calendar.cache_ttl", "5m")
	v.SetDefault("schedule.break_minutes", scheduler.DefaultBreakTime)
	v.SetDefault("schedule.min_chunk_minutes", scheduler.DefaultMinChunkDuration)
	v.SetDefault("schedule.day_end", "23:00")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	location, err := time.LoadLocation(v.GetString("app.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("log.level")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	ttl, err := parseDuration(v.GetString("calendar.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid calendar cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	dayEnd, err := ParseClock(v.GetString("schedule.day_end"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid schedule day end: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		Location:         location,
		LogLevel:         level,
		DatabaseDriver:   strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsChannel:    v.GetString("events.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		CalendarCacheTTL: ttl,
		BreakMinutes:     v.GetInt("schedule.break_minutes"),
		MinChunkMinutes:  v.GetInt("schedule.min_chunk_minutes"),
		DayEndMinutes:    dayEnd,
		RateLimitMax:     v.GetInt("rate_limit.max"),
		RateLimitWindow:  window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if err := cfg.DefaultPolicy().Validate(); err != nil {
		return Config{}, err
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}

// ParseClock converts an "HH:MM" wall-clock string into minutes after midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	total := hour*60 + minute
	if total == 0 || total > 24*60 {
		return 0, fmt.Errorf("time %q must be after midnight and within the day", value)
	}
	return total, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
