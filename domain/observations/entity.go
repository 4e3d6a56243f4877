// Package observations stores the memory records themselves: short
// texts attached to an entity, enriched with category, tags and an
// importance score, and embedded asynchronously by the pipeline.
package observations

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Metadata is the typed shape of the observations.metadata jsonb
// column. Unknown keys survive round trips through Extra.
type Metadata struct {
	URL         string `json:"url,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Title       string `json:"title,omitempty"`
	CaptureType string `json:"capture_type,omitempty"`
	Source      string `json:"source,omitempty"`

	Extra map[string]any `json:"-"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.URL != "" {
		out["url"] = m.URL
	}
	if m.Domain != "" {
		out["domain"] = m.Domain
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.CaptureType != "" {
		out["capture_type"] = m.CaptureType
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	return json.Marshal(out)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// A known key with a non-string value stays in the raw map, so it
	// rides along in Extra instead of being dropped.
	take := func(key string) string {
		if v, ok := raw[key].(string); ok {
			delete(raw, key)
			return v
		}
		return ""
	}

	m.URL = take("url")
	m.Domain = take("domain")
	m.Title = take("title")
	m.CaptureType = take("capture_type")
	m.Source = take("source")

	if len(raw) > 0 {
		m.Extra = raw
	} else {
		m.Extra = nil
	}
	return nil
}

// Observation is a row in memory.observations.
type Observation struct {
	bun.BaseModel `bun:"table:memory.observations,alias:o"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	EntityID      int64     `bun:"entity_id,notnull" json:"entity_id"`
	Text          string    `bun:"text,notnull" json:"text"`
	SequenceIndex int       `bun:"sequence_index,notnull" json:"sequence_index"`
	Category      string    `bun:"category,notnull,default:'note'" json:"category"`
	Importance    float64   `bun:"importance,notnull" json:"importance"`
	Tags          []string  `bun:"tags,array" json:"tags"`
	Metadata      *Metadata `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:now()" json:"created_at"`

	// Embedding is written by the pipeline via raw SQL; exposed here
	// only so selects can detect pending rows.
	Embedding      []byte     `bun:"embedding" json:"-"`
	EmbedClaimedAt *time.Time `bun:"embed_claimed_at" json:"-"`
	EmbedAttempts  int        `bun:"embed_attempts,notnull" json:"-"`
}

// Archived is a row in memory.observations_archive: the original of an
// observation the pipeline split into chunks.
type Archived struct {
	bun.BaseModel `bun:"table:memory.observations_archive,alias:oa"`

	ID            int64     `bun:"id,pk" json:"id"`
	EntityID      int64     `bun:"entity_id,notnull" json:"entity_id"`
	Text          string    `bun:"text,notnull" json:"text"`
	SequenceIndex int       `bun:"sequence_index,notnull" json:"sequence_index"`
	Category      string    `bun:"category,notnull" json:"category"`
	Importance    float64   `bun:"importance,notnull" json:"importance"`
	Tags          []string  `bun:"tags,array" json:"tags"`
	Metadata      *Metadata `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ArchivedAt    time.Time `bun:"archived_at,notnull" json:"archived_at"`
}
