// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Rules holds the competition rule set. The original game scripts hard-coded
// these; here they are configuration so zone cutoffs and point values can be
// tuned without a deploy.
type Rules struct {
	// TopTier..BottomTier is the ladder range, 1 being the top flight.
	TopTier    int
	BottomTier int
	// Capacity is the number of competing slots per tier.
	Capacity int
	// PromotionZone / RelegationZone are the number of positions at the top
	// and bottom of the table that move between tiers.
	PromotionZone  int
	RelegationZone int
	PointsWin      int
	PointsDraw     int
	// RoundIntervalDays is the gap between consecutive rounds on the calendar.
	RoundIntervalDays int
}

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT verification secret shared with the accounts service (required in production).
	JWTSecret string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Competition rules
	Rules Rules

	// MySQL – used only by cmd/migrate to import the legacy game database.
	MySQLDSN string

	// Cron spec for cmd/reconcile.
	ReconcileSpec string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "padraic")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "leaguedata")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "league.padraicbc.com")
	v.SetDefault("DEBUG", false)
	v.SetDefault("TOP_TIER", 1)
	v.SetDefault("BOTTOM_TIER", 4)
	v.SetDefault("TIER_CAPACITY", 20)
	v.SetDefault("PROMOTION_ZONE", 4)
	v.SetDefault("RELEGATION_ZONE", 4)
	v.SetDefault("POINTS_WIN", 3)
	v.SetDefault("POINTS_DRAW", 1)
	v.SetDefault("ROUND_INTERVAL_DAYS", 7)
	v.SetDefault("RECONCILE_SPEC", "0 4 * * *")

	cfg := &Config{
		DatabaseURL: v.GetString("DATABASE_URL"),
		DBUser:      v.GetString("DB_USER"),
		DBPass:      v.GetString("DB_PASS"),
		DBHost:      v.GetString("DB_HOST"),
		DBPort:      v.GetString("DB_PORT"),
		DBName:      v.GetString("DB_NAME"),
		DBSSLMode:   v.GetString("DB_SSLMODE"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		Debug:       v.GetBool("DEBUG"),
		Port:        v.GetString("PORT"),
		TLSDomains:  splitTrimmed(v.GetString("TLS_DOMAINS")),
		Rules: Rules{
			TopTier:           v.GetInt("TOP_TIER"),
			BottomTier:        v.GetInt("BOTTOM_TIER"),
			Capacity:          v.GetInt("TIER_CAPACITY"),
			PromotionZone:     v.GetInt("PROMOTION_ZONE"),
			RelegationZone:    v.GetInt("RELEGATION_ZONE"),
			PointsWin:         v.GetInt("POINTS_WIN"),
			PointsDraw:        v.GetInt("POINTS_DRAW"),
			RoundIntervalDays: v.GetInt("ROUND_INTERVAL_DAYS"),
		},
		MySQLDSN:      v.GetString("MYSQL_DSN"),
		ReconcileSpec: v.GetString("RECONCILE_SPEC"),
	}

	cfg.validate()
	return cfg
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT verification key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func (c *Config) validate() {
	if c.DatabaseURL == "" && c.DBPass == "" {
		log.Fatal("config: DATABASE_URL or DB_PASS must be set")
	}
	if c.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}
	r := c.Rules
	if r.TopTier < 1 || r.BottomTier < r.TopTier {
		log.Fatalf("config: invalid tier range %d..%d", r.TopTier, r.BottomTier)
	}
	if r.Capacity < 2 {
		log.Fatalf("config: TIER_CAPACITY must be at least 2, got %d", r.Capacity)
	}
	if r.PromotionZone+r.RelegationZone > r.Capacity {
		log.Fatalf("config: promotion zone %d + relegation zone %d exceed capacity %d",
			r.PromotionZone, r.RelegationZone, r.Capacity)
	}
	if r.PointsWin <= r.PointsDraw {
		log.Fatalf("config: POINTS_WIN %d must exceed POINTS_DRAW %d", r.PointsWin, r.PointsDraw)
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
