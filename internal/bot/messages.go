package bot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"
)

const (
	// DefaultKey is the table entry used for weekdays without their own list
	DefaultKey = "default"

	// FallbackMessage is sent when neither the weekday nor DefaultKey has messages
	FallbackMessage = "Hello!"

	// FallbackKey marks a Selection that used FallbackMessage
	FallbackKey = "fallback"

	previewLength = 50
)

// MessageTable maps full English weekday names, plus DefaultKey, to candidate messages
type MessageTable map[string][]string

// Selection is the message picked for one run
type Selection struct {
	Weekday string `json:"day"`
	Key     string `json:"key"` // table entry the message came from
	Message string `json:"message"`
}

// LoadMessages reads the message table. A missing or malformed file is an error.
func LoadMessages(path string) (MessageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file %s: %w", path, err)
	}

	var table MessageTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	if table == nil {
		return nil, fmt.Errorf("invalid JSON in %s: expected an object", path)
	}
	return table, nil
}

// SelectMessage picks uniformly from today's list, else the default list, else FallbackMessage.
// An empty list counts as absent. A nil rng uses the global source.
func SelectMessage(table MessageTable, now time.Time, rng *rand.Rand) Selection {
	sel := Selection{Weekday: now.Weekday().String()}

	pool, ok := table[sel.Weekday]
	sel.Key = sel.Weekday
	if !ok || len(pool) == 0 {
		sel.Key = DefaultKey
		pool = table[DefaultKey]
	}
	if len(pool) == 0 {
		sel.Key = FallbackKey
		pool = []string{FallbackMessage}
	}

	var i int
	if rng != nil {
		i = rng.IntN(len(pool))
	} else {
		i = rand.IntN(len(pool))
	}
	sel.Message = pool[i]
	return sel
}

// MessageSelector loads the table fresh on every call and logs the choice.
type MessageSelector struct {
	Path   string
	Now    func() time.Time
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (m *MessageSelector) Select() (Selection, error) {
	table, err := LoadMessages(m.Path)
	if err != nil {
		m.Logger.Error("Failed to load messages", "error", err)
		return Selection{}, err
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}

	sel := SelectMessage(table, now, m.Rand)
	switch sel.Key {
	case DefaultKey:
		m.Logger.Warn(fmt.Sprintf("No messages found for %s, using default", sel.Weekday))
	case FallbackKey:
		m.Logger.Warn(fmt.Sprintf("No messages found for %s or default, using built-in message", sel.Weekday))
	}
	m.Logger.Info(fmt.Sprintf("Selected message for %s: %s...", sel.Key, Preview(sel.Message)))
	return sel, nil
}

// Preview truncates s to the first 50 characters.
func Preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength])
}
