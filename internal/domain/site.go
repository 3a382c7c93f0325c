package domain

import "encoding/json"

// SiteConfig is the forum's public config.json.
type SiteConfig struct {
	Title string          `json:"title"`
	OAuth []string        `json:"oauth"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// HeadBlock is the explorer's latest block for the forum database, kept as raw JSON.
type HeadBlock json.RawMessage

// MarshalJSON emits the stored block, or an empty object when unset.
func (h HeadBlock) MarshalJSON() ([]byte, error) {
	if len(h) == 0 {
		return []byte("{}"), nil
	}
	return []byte(h), nil
}

// Cache keys shared with the explorer views.
const (
	CacheKeyBlocks = "blocks"
	CacheKeySQL    = "sql"
	CacheKeyHead   = "head"
)
