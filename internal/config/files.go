package config

import (
	"os"
	"path/filepath"
)

// FileName is the config file looked up by DefaultFile.
const FileName = "logkv.yaml"

// DefaultFile returns where the config file lives: $CONFIG_DIR when set,
// ~/.logkv otherwise.
func DefaultFile() (string, error) {
	return configFile(FileName)
}

func configFile(filename string) (string, error) {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, filename), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".logkv", filename), nil
}
