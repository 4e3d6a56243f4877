// Package entities manages the subjects observations attach to: a
// person, a project, a web domain. Entities are created on demand
// during ingestion and carry a denormalized observation count.
package entities

import (
	"time"

	"github.com/uptrace/bun"
)

// Entity is a row in memory.entities.
type Entity struct {
	bun.BaseModel `bun:"table:memory.entities,alias:e"`

	ID               int64          `bun:"id,pk,autoincrement" json:"id"`
	Name             string         `bun:"name,notnull" json:"name"`
	Category         string         `bun:"category,notnull,default:'general'" json:"category"`
	Metadata         map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	ObservationCount int            `bun:"observation_count,notnull,default:0" json:"observation_count"`
	CreatedAt        time.Time      `bun:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt        time.Time      `bun:"updated_at,notnull,default:now()" json:"updated_at"`
}
