package assessment

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionKindDiagnostic = "diagnostic"
	SessionKindQuiz       = "quiz"

	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusExpired    = "expired"
	SessionStatusReset      = "reset"
)

// AssessmentSession tracks one diagnostic or adaptive-quiz run.
// Version is an optimistic-concurrency guard bumped on every write.
type AssessmentSession struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_session_user_area,priority:1" json:"user_id"`
	Kind           string     `gorm:"column:kind;not null" json:"kind"`
	KnowledgeArea  string     `gorm:"column:knowledge_area;not null;index:idx_session_user_area,priority:2" json:"knowledge_area"`
	Status         string     `gorm:"column:status;not null;index" json:"status"`
	Strategy       string     `gorm:"column:strategy;not null" json:"strategy"`
	Version        int        `gorm:"column:version;not null;default:1" json:"version"`
	AnsweredCount  int        `gorm:"column:answered_count;not null;default:0" json:"answered_count"`
	CorrectCount   int        `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	QuestionTarget int        `gorm:"column:question_target;not null;default:0" json:"question_target"`
	IsPaused       bool       `gorm:"column:is_paused;not null;default:false" json:"is_paused"`
	StartedAt      time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at;not null;index" json:"last_activity_at"`
	EndedAt        *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (AssessmentSession) TableName() string { return "assessment_session" }

// Open reports whether the session still accepts answers.
func (s *AssessmentSession) Open() bool {
	return s.Status == SessionStatusInProgress && s.EndedAt == nil
}
