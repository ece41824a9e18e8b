package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

var isGCP = os.Getenv("GOOGLE_CLOUD_PROJECT") != ""

// getSecret retrieves the value of a secret from Google Cloud Secret Manager or environment variables.
// An explicitly set environment variable wins over Secret Manager.
func getSecret(key string) (string, error) {
	value := os.Getenv(key)
	if value != "" {
		return value, nil
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID != "" {
		return readSecret(context.Background(), latestSecretVersion(projectID, key))
	}

	return "", fmt.Errorf("environment variable %q not set", key)
}

// getRequiredSecret is a helper func to get a required secret or fatal log on error.
func getRequiredSecret(key string) string {
	val, err := getSecret(key)
	if err != nil {
		log.Fatalf("FATAL: Cannot get required secret %q: %v", key, err)
	}
	if val == "" {
		log.Fatalf("FATAL: Required secret %q is empty", key)
	}
	return val
}

// getOptionalSecret is a helper func to get an optional secret with a default value.
func getOptionalSecret(key, defaultValue string) string {
	val, err := getSecret(key)
	if err != nil || val == "" {
		return defaultValue
	}
	return val
}

// parseOptionalInt parses an integer secret, falling back to the default when unset.
// A value that is set but malformed is fatal.
func parseOptionalInt(key string, defaultValue int) int {
	valStr := getOptionalSecret(key, "")
	if valStr == "" {
		return defaultValue
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Fatalf("FATAL: Invalid integer value for secret %q: %v", key, err)
	}
	return val
}

// parseOptionalSeconds parses a whole number of seconds into a duration.
func parseOptionalSeconds(key string, defaultValue time.Duration) time.Duration {
	seconds := parseOptionalInt(key, -1)
	if seconds < 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

// parseOptionalBool accepts true/1/yes and false/0/no in any case.
func parseOptionalBool(key string, defaultValue bool) bool {
	value := strings.ToLower(getOptionalSecret(key, ""))
	switch value {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		log.Fatalf("FATAL: Invalid boolean value for secret %q: %s", key, value)
		return defaultValue
	}
}
