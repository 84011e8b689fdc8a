package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvString looks up a string override from the environment.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt looks up an integer override from the environment.
func EnvInt(name string) (int, bool, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return parsed, true, nil
}

// EnvBool looks up a boolean override from the environment.
func EnvBool(name string) (bool, bool, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	return parsed, true, nil
}
