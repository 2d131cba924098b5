package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is an assessment item. Difficulty lives in IRT space [-3,3];
// guess/slip rates override the engine defaults when set.
type Question struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	KnowledgeArea  string         `gorm:"column:knowledge_area;not null;index" json:"knowledge_area"`
	Prompt         string         `gorm:"column:prompt;type:text;not null" json:"prompt"`
	Options        datatypes.JSON `gorm:"column:options;type:jsonb;not null" json:"options"` // []string
	CorrectOption  int            `gorm:"column:correct_option;not null" json:"-"`
	Difficulty     float64        `gorm:"column:difficulty;not null;default:0" json:"difficulty"`
	Discrimination float64        `gorm:"column:discrimination;not null;default:1" json:"discrimination"`
	GuessRate      *float64       `gorm:"column:guess_rate" json:"guess_rate,omitempty"`
	SlipRate       *float64       `gorm:"column:slip_rate" json:"slip_rate,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

// QuestionConcept links a question to a concept it tests.
type QuestionConcept struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index:idx_question_concept,unique,priority:1" json:"question_id"`
	ConceptID  uuid.UUID `gorm:"type:uuid;not null;index:idx_question_concept,unique,priority:2" json:"concept_id"`
	Relevance  float64   `gorm:"column:relevance;not null;default:1" json:"relevance"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (QuestionConcept) TableName() string { return "question_concept" }
