package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envPaths are probed in order; the first existing file wins
var envPaths = []string{
	".env",
	".env.local",
	"../.env",
}

// LoadEnv loads environment variables from the first .env file found.
// Variables already present in the process environment are not overwritten.
func LoadEnv() error {
	_, err := loadEnvFrom(envPaths)
	return err
}

func loadEnvFrom(paths []string) (string, error) {
	for _, envPath := range paths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			return envPath, nil
		}
	}
	return "", nil
}
