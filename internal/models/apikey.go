package models

import "time"

// Well-known API key names resolved by the key resolver.
const (
	APIKeyTextProvider   = "text_provider"
	APIKeySpeechProvider = "speech_provider"
)

// APIKey is a named provider secret managed through the admin panel.
// Generation code only ever reads active records. Resolved values are
// cached without a TTL; the admin endpoints drop the cache entry in
// their own process, the worker sees a rotated value after restart.
type APIKey struct {
	Name      string    `json:"name" db:"key_name"`
	Value     string    `json:"-" db:"key_value"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
