package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnswerEvent is the immutable record of one physical submission.
// The (session_id, idempotency_key) unique index is the serialization
// point for duplicate submissions; ResultJSON holds the response that
// was returned the first time so replays answer identically.
type AnswerEvent struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_answer_event_idem,unique,priority:1" json:"session_id"`
	IdempotencyKey string         `gorm:"column:idempotency_key;not null;index:idx_answer_event_idem,unique,priority:2" json:"idempotency_key"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	QuestionID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	SelectedOption int            `gorm:"column:selected_option;not null" json:"selected_option"`
	IsCorrect      bool           `gorm:"column:is_correct;not null" json:"is_correct"`
	WasLocked      bool           `gorm:"column:was_locked;not null;default:false" json:"was_locked"`
	ResultJSON     datatypes.JSON `gorm:"column:result_json;type:jsonb" json:"result_json,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (AnswerEvent) TableName() string { return "answer_event" }
