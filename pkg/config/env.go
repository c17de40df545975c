package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory when present.
// Missing files are not an error; a malformed file is.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}
