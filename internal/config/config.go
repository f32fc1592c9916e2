// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // CINEMA_TZ must resolve on hosts without a zoneinfo database
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	LogLevel       string // LOG_LEVEL
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	AutoMigrate    bool // DB_AUTO_MIGRATE: apply the embedded schema at startup
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	Booking BookingConfig

	RabbitMQURL    string // empty disables event publishing
	BookingLogPath string // audit log written by the queue consumer
}

// BookingConfig carries the cinema's booking rules.
type BookingConfig struct {
	TimeZone            string         // CINEMA_TZ
	Location            *time.Location // resolved TimeZone
	PriceStandardCents  uint32
	PriceMemberCents    uint32
	MaxSeatsPerCustomer int
	CancelCutoff        time.Duration
}

// Load reads the configuration. Every missing or malformed required
// variable is reported in the returned error.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:            l.must("APP_ENV"),
		Port:           l.must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         l.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         l.must("DB_HOST"),
		DBPort:         l.must("DB_PORT"),
		DBName:         l.must("DB_NAME"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:      l.must("JWT_SECRET"),
		AccessTTLMin:   l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: l.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     l.mustInt("BCRYPT_COST"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
	}
	b, err := LoadBookingConfig()
	if err != nil {
		l.invalid = append(l.invalid, err.Error())
	}
	cfg.Booking = b
	if err := l.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadBookingConfig reads the booking rules, defaulting to the cinema's
// standard policy: 8.00 / 6.00 EUR, two seats per customer and showtime,
// cancellation up to one hour before the start, Europe/Rome calendar.
func LoadBookingConfig() (BookingConfig, error) {
	b := BookingConfig{
		TimeZone:            envStr("CINEMA_TZ", "Europe/Rome"),
		PriceStandardCents:  uint32(envInt("PRICE_STANDARD_CENTS", 800)),
		PriceMemberCents:    uint32(envInt("PRICE_MEMBER_CENTS", 600)),
		MaxSeatsPerCustomer: envInt("MAX_SEATS_PER_CUSTOMER", 2),
		CancelCutoff:        envDur("CANCEL_CUTOFF", time.Hour),
	}
	loc, err := time.LoadLocation(b.TimeZone)
	if err != nil {
		return b, fmt.Errorf("invalid CINEMA_TZ %q: %w", b.TimeZone, err)
	}
	b.Location = loc
	if b.MaxSeatsPerCustomer < 1 {
		return b, fmt.Errorf("MAX_SEATS_PER_CUSTOMER must be positive")
	}
	if b.PriceMemberCents > b.PriceStandardCents {
		return b, fmt.Errorf("PRICE_MEMBER_CENTS cannot exceed PRICE_STANDARD_CENTS")
	}
	return b, nil
}

// loader collects problems with required variables instead of stopping at
// the first one.
type loader struct {
	missing []string
	invalid []string
}

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.invalid = append(l.invalid, fmt.Sprintf("invalid int for %s: %q", key, s))
	}
	return n
}

func (l *loader) err() error {
	var parts []string
	if len(l.missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(l.missing, ", "))
	}
	parts = append(parts, l.invalid...)
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
