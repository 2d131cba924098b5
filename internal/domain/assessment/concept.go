package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Concept is an atomic knowledge unit. Concepts and their prerequisite
// edges are authored by content management and read-only to this service.
type Concept struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	KnowledgeArea string         `gorm:"column:knowledge_area;not null;index" json:"knowledge_area"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Concept) TableName() string { return "concept" }

const (
	EdgeTypeRequired = "required"
	EdgeTypeHelpful  = "helpful"
	EdgeTypeRelated  = "related"
)

// ConceptEdge is a directed prerequisite edge: PrereqConceptID must be
// learned before ConceptID. The graph is acyclic and irreflexive.
type ConceptEdge struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PrereqConceptID uuid.UUID `gorm:"type:uuid;not null;index:idx_concept_edge,unique,priority:1" json:"prereq_concept_id"`
	ConceptID       uuid.UUID `gorm:"type:uuid;not null;index:idx_concept_edge,unique,priority:2" json:"concept_id"`
	EdgeType        string    `gorm:"column:edge_type;not null;index:idx_concept_edge,unique,priority:3" json:"edge_type"`
	Strength        float64   `gorm:"column:strength;not null" json:"strength"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (ConceptEdge) TableName() string { return "concept_edge" }
