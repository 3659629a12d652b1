package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// KafkaConfig holds broker settings shared by producers and consumers.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Load returns a viper instance bound to the environment with the shared defaults registered.
// Every key is looked up both with the service prefix (BOOKING_DB_HOST) and without it (DB_HOST)
// so shared settings can live in one place.
func Load(prefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err := Bind(v, prefix, map[string]any{
		"APP_ENV":            "development",
		"DB_HOST":            "localhost",
		"DB_PORT":            "5432",
		"DB_USER":            "postgres",
		"DB_PASSWORD":        "postgres",
		"DB_SSLMODE":         "disable",
		"JWT_SECRET":         "change-me",
		"JWT_ACCESS_TTL":     "15m",
		"JWT_REFRESH_TTL":    "168h",
		"KAFKA_BROKERS":      "localhost:9092",
		"KAFKA_GROUP_PREFIX": "",
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Bind registers defaults and binds each key to PREFIX_KEY and KEY, in that order.
func Bind(v *viper.Viper, prefix string, defaults map[string]any) error {
	for key, def := range defaults {
		v.SetDefault(key, def)
		envs := []string{key}
		if prefix != "" {
			envs = []string{strings.ToUpper(prefix) + "_" + key, key}
		}
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// GetAppEnv returns the deployment environment name.
func GetAppEnv(v *viper.Viper) string {
	return v.GetString("APP_ENV")
}

// GetServicePort returns the listen address for the service, e.g. ":8082".
func GetServicePort(v *viper.Viper, key string) string {
	port := v.GetString(key)
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

// LoadDatabaseConfig reads the database settings; dbNameKey names the variable carrying the
// database name.
func LoadDatabaseConfig(v *viper.Viper, dbNameKey string) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString(dbNameKey),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

// LoadJWTConfig reads the token settings.
func LoadJWTConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
		RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
	}
}

// LoadKafkaConfig reads the broker list (comma separated) and consumer group prefix.
func LoadKafkaConfig(v *viper.Viper) KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers:     brokers,
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}
