package assessment

import (
	"time"

	"github.com/google/uuid"
)

// BeliefState is the Beta-distribution mastery belief for one
// (user, concept) pair. Alpha and Beta are strictly positive at all
// times; ResponseCount never decreases. Rows are created lazily and
// mutated only by the Bayesian update path.
type BeliefState struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_belief_state,unique,priority:1" json:"user_id"`
	ConceptID     uuid.UUID `gorm:"type:uuid;not null;index:idx_belief_state,unique,priority:2" json:"concept_id"`
	Alpha         float64   `gorm:"column:alpha;not null" json:"alpha"`
	Beta          float64   `gorm:"column:beta;not null" json:"beta"`
	ResponseCount int       `gorm:"column:response_count;not null;default:0" json:"response_count"`
	LastUpdated   time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (BeliefState) TableName() string { return "belief_state" }

// Mean returns alpha/(alpha+beta), the point estimate of mastery.
func (b *BeliefState) Mean() float64 {
	return b.Alpha / (b.Alpha + b.Beta)
}
