package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Graph database
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// JWT
	JWTSecret string
	TokenTTL  time.Duration

	// Credentials
	SaltLength            int
	BcryptCost            int
	ForceComplexPasswords bool

	// Graph policy
	RestrictGraph        bool
	RestrictedLabels     []string
	AllowedLabels        []string
	AllowedRelationships []string

	// Storage
	UploadDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		Neo4jURI:              getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		TokenTTL:              time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 15)) * time.Minute,
		SaltLength:            getEnvInt("SALT_LENGTH", 32),
		BcryptCost:            getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		ForceComplexPasswords: getEnvBool("FORCE_COMPLEX_PASSWORDS", true),
		RestrictGraph:         getEnvBool("RESTRICT_GRAPH", false),
		RestrictedLabels:      getEnvList("RESTRICTED_LABELS", []string{"User"}),
		AllowedLabels:         getEnvList("ALLOWED_LABELS", nil),
		AllowedRelationships:  getEnvList("ALLOWED_RELATIONSHIPS", nil),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
