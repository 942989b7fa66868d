package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // "" disables the gRPC health endpoint

	// DB
	Env        string // "dev" | "prod"
	DBPath     string // e.g. "./data/attendance.sqlite"
	StoreKind  string // "sqlite" | "memory"
	SeedDev    bool
	QueueDepth int // db writer job buffer

	// MQTT
	MQTTURL      string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	APIToken string

	LogLevel  string
	LogFormat string

	HealthIntervalSeconds int
}

// FromEnv loads an optional .env file, then reads the process environment.
// Values already set in the environment win over the file.
func FromEnv() Config {
	_ = godotenv.Load()
	return Read()
}

// Read builds a Config from the environment only.
func Read() Config {
	env := strings.ToLower(getenvDefault("PUNCH_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	storeKind := strings.ToLower(getenvDefault("PUNCH_STORE", "sqlite"))
	if storeKind != "sqlite" && storeKind != "memory" {
		storeKind = "sqlite"
	}

	return Config{
		HTTPAddr: getenvDefault("PUNCH_HTTP_ADDR", ":3000"),
		GRPCAddr: getenvAllowEmpty("PUNCH_GRPC_ADDR", ":9090"),

		Env:        env,
		DBPath:     getenvDefault("SQLITE_PATH", "./data/attendance.sqlite"),
		StoreKind:  storeKind,
		SeedDev:    getenvBool("PUNCH_SEED_DEV", false),
		QueueDepth: getenvInt("PUNCH_DB_QUEUE", 256),

		MQTTURL:      strings.TrimSpace(os.Getenv("MQTT_URL")),
		MQTTTopic:    getenvDefault("MQTT_SUB_TOPIC", "aiface/+/sub"),
		MQTTClientID: strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID")),
		MQTTUsername: os.Getenv("MQTT_USERNAME"),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),

		APIToken: strings.TrimSpace(os.Getenv("API_TOKEN")),

		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "json"),

		HealthIntervalSeconds: getenvInt("HEALTH_INTERVAL_SECONDS", 15),
	}
}

// Validate reports every required key that is missing.
func (c Config) Validate() error {
	var missing []string
	if c.MQTTURL == "" {
		missing = append(missing, "MQTT_URL")
	}
	if c.APIToken == "" {
		missing = append(missing, "API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	if c.HealthIntervalSeconds <= 0 {
		return errors.New("HEALTH_INTERVAL_SECONDS must be positive")
	}
	return nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// getenvAllowEmpty returns def only when key is unset, so an explicit empty
// value can switch a feature off.
func getenvAllowEmpty(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
