package config

import (
	"os"

	"github.com/teamsfx/tfx/internal/secrets"
)

// LoadDotenv exports the entries of a .env file that are not already set
// in the environment. A missing file is not an error.
func LoadDotenv(path string) error {
	return applyDotenv(path, false)
}

// ReloadDotenv is LoadDotenv overriding values already set.
func ReloadDotenv(path string) error {
	return applyDotenv(path, true)
}

func applyDotenv(path string, override bool) error {
	entries, err := secrets.ReadEntries(path)
	if err != nil {
		return err
	}
	for key, value := range entries {
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
