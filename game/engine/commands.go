package engine

import "strings"

// keyBindings maps lower-cased host key names to logical commands.
// Arrow keys and WASD share the same logical command.
var keyBindings = map[string]string{
	"arrowleft":  "rotate_left",
	"left":       "rotate_left",
	"a":          "rotate_left",
	"arrowright": "rotate_right",
	"right":      "rotate_right",
	"d":          "rotate_right",
	"arrowup":    "thrust",
	"up":         "thrust",
	"w":          "thrust",
	"space":      "thrust",
	" ":          "thrust",
	"r":          "reset",
}

// normalizeKey lower-cases a key name; a bare space is kept as-is
func normalizeKey(key string) string {
	if key == " " {
		return key
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// Decode maps a snapshot of held keys into the per-tick command set.
// Unrecognized keys are ignored and duplicates collapse.
func Decode(keys []string) Commands {
	var cmds Commands
	for _, key := range keys {
		switch keyBindings[normalizeKey(key)] {
		case "rotate_left":
			cmds.RotateLeft = true
		case "rotate_right":
			cmds.RotateRight = true
		case "thrust":
			cmds.Thrust = true
		case "reset":
			cmds.ResetRequested = true
		}
	}
	return cmds
}

// IsResetKey reports whether key maps to the reset command
func IsResetKey(key string) bool {
	return keyBindings[normalizeKey(key)] == "reset"
}

// KnownKeys returns the recognised key names, used for instructions and validation
func KnownKeys() []string {
	return []string{"ArrowLeft", "ArrowRight", "ArrowUp", "A", "D", "W", "Space", "R"}
}

// KeyTracker turns key-down/key-up events into the held-key snapshot and
// fires reset once per press rather than once per tick the key is held.
type KeyTracker struct {
	held map[string]bool
}

// NewKeyTracker creates an empty tracker
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{held: make(map[string]bool)}
}

// Press records a key-down event. It returns true when the press is a new reset
// request; auto-repeated key-down events for a held reset key return false.
func (k *KeyTracker) Press(key string) bool {
	key = normalizeKey(key)
	wasHeld := k.held[key]
	k.held[key] = true
	return !wasHeld && IsResetKey(key)
}

// Release records a key-up event
func (k *KeyTracker) Release(key string) {
	delete(k.held, normalizeKey(key))
}

// Set replaces the held-key snapshot. Reset keys present in the new snapshot
// that were not held before count as a fresh press.
func (k *KeyTracker) Set(keys []string) bool {
	next := make(map[string]bool, len(keys))
	reset := false
	for _, key := range keys {
		key = normalizeKey(key)
		if IsResetKey(key) && !k.held[key] {
			reset = true
		}
		next[key] = true
	}
	k.held = next
	return reset
}

// Held returns the currently held keys
func (k *KeyTracker) Held() []string {
	keys := make([]string, 0, len(k.held))
	for key := range k.held {
		keys = append(keys, key)
	}
	return keys
}

// Commands decodes the currently held keys
func (k *KeyTracker) Commands() Commands {
	return Decode(k.Held())
}
