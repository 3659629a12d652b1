package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/config"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      config.DatabaseConfig
	JWTConfig     config.JWTConfig
	KafkaConfig   config.KafkaConfig
	BookingConfig BookingConfig
}

// BookingConfig holds the scheduling and expiry rules.
type BookingConfig struct {
	OverlapBufferMinutes int
	Timezone             string
	PendingTTL           time.Duration
	ExpirySchedule       string
	ExpiryBatchSize      int
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	if err := config.Bind(v, "BOOKING", map[string]any{
		"SERVICE_PORT":           "8082",
		"DB_NAME":                "skillswap_booking",
		"OVERLAP_BUFFER_MINUTES": 0,
		"TIMEZONE":               "UTC",
		"PENDING_TTL":            "48h",
		"EXPIRY_SCHEDULE":        "@every 1m",
		"EXPIRY_BATCH_SIZE":      100,
	}); err != nil {
		return nil, err
	}

	bc, err := loadBookingConfig(v)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{
		Port:          config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:        config.GetAppEnv(v),
		DBConfig:      config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:     config.LoadJWTConfig(v),
		KafkaConfig:   config.LoadKafkaConfig(v),
		BookingConfig: bc,
	}, nil
}

func loadBookingConfig(v *viper.Viper) (BookingConfig, error) {
	bc := BookingConfig{
		OverlapBufferMinutes: v.GetInt("OVERLAP_BUFFER_MINUTES"),
		Timezone:             v.GetString("TIMEZONE"),
		PendingTTL:           v.GetDuration("PENDING_TTL"),
		ExpirySchedule:       v.GetString("EXPIRY_SCHEDULE"),
		ExpiryBatchSize:      v.GetInt("EXPIRY_BATCH_SIZE"),
	}
	if bc.OverlapBufferMinutes < 0 {
		return bc, fmt.Errorf("OVERLAP_BUFFER_MINUTES must not be negative, got %d", bc.OverlapBufferMinutes)
	}
	if bc.PendingTTL < 0 {
		return bc, fmt.Errorf("PENDING_TTL must not be negative, got %s", bc.PendingTTL)
	}
	if bc.ExpiryBatchSize <= 0 {
		return bc, fmt.Errorf("EXPIRY_BATCH_SIZE must be positive, got %d", bc.ExpiryBatchSize)
	}
	return bc, nil
}

// Policy converts the settings into booking rules. A zero PENDING_TTL disables age-based
// expiry; bookings still expire once their start time passes.
func (c BookingConfig) Policy() (application.Policy, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return application.Policy{}, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return application.Policy{
		OverlapBuffer:   time.Duration(c.OverlapBufferMinutes) * time.Minute,
		Location:        loc,
		PendingTTL:      c.PendingTTL,
		ExpiryBatchSize: c.ExpiryBatchSize,
	}, nil
}
