package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "20060102150405"

// RunConfig describes one execution of a command. It is built once at startup and
// passed to every component that needs to name something.
type RunConfig struct {
	ID          string
	Action      string // ActionCreate or ActionValidate
	User        string
	Tag         string // change number, part of generated snapshot names
	Started     time.Time
	Timestamp   string
	LogFile     string
	SummaryFile string
	LedgerFile  string
}

func NewRunConfig(cfg Config, action, user, tag string, now time.Time) RunConfig {
	ts := now.Format(timestampLayout)
	u := SanitizeName(user)
	if u == "" {
		u = "unknown"
	}
	return RunConfig{
		ID:          uuid.NewString(),
		Action:      action,
		User:        user,
		Tag:         tag,
		Started:     now,
		Timestamp:   ts,
		LogFile:     filepath.Join(cfg.Files.LogDir, fmt.Sprintf("snapshot_%s_log_%s_%s.txt", action, u, ts)),
		SummaryFile: filepath.Join(cfg.Files.LogDir, fmt.Sprintf("snapshot_%s_summary_%s_%s.txt", action, u, ts)),
		LedgerFile:  cfg.Files.Ledger,
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeName replaces every character outside [A-Za-z0-9_.-] with an underscore.
func SanitizeName(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}
