package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override ddt.yaml. Lab machines usually set
// the server and session id this way so one config serves every seat.
const (
	EnvServerURL      = "DDT_SERVER_URL"
	EnvSessionID      = "DDT_SESSION_ID"
	EnvParticipant    = "DDT_PARTICIPANT"
	EnvSessionCount   = "DDT_SESSION_COUNT"
	EnvSessionCurrent = "DDT_SESSION_CURRENT"
	EnvDataDir        = "DDT_DATA_DIR"
)

// LoadDotEnv loads path into the process environment. A missing file is
// not an error. Variables already set are left alone.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// ApplyEnv copies the DDT_* variables found by lookup over cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerURL); ok && v != "" {
		cfg.Server.URL = v
	}
	if v, ok := lookup(EnvSessionID); ok && v != "" {
		cfg.Session.ID = v
	}
	if v, ok := lookup(EnvParticipant); ok && v != "" {
		cfg.Participant = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		cfg.DataDir = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvSessionCount, &cfg.Session.Count},
		{EnvSessionCurrent, &cfg.Session.Current},
	}
	for _, e := range ints {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", e.name, v)
		}
		*e.dst = n
	}

	return nil
}
