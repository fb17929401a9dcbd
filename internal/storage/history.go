package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"echoburst/internal/runner"
)

// HistoryItem is one completed run as persisted in the store.
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Report    *runner.Report `json:"report"`
}

// NewHistoryItem keys the item by start time so cursor order is run order.
func NewHistoryItem(r *runner.Report) HistoryItem {
	return HistoryItem{
		ID:        fmt.Sprintf("%s-%s", r.StartTime.UTC().Format("20060102T150405.000000000"), r.ID),
		Timestamp: r.StartTime,
		Report:    r,
	}
}

// DefaultPath is $HOME/.echoburst/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".echoburst", "history.db"), nil
}
