package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, row *types.AssessmentSession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error)
	// GetByIDForUpdate locks the session row; this lock plus the
	// answer-event unique index is the serialization point for
	// concurrent submissions to the same session.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error)
	GetOpenByUserAndAreaForUpdate(dbc dbctx.Context, userID uuid.UUID, area string) (*types.AssessmentSession, error)
	// UpdateVersioned writes the row guarded by its optimistic version;
	// a stale version surfaces as a conflict.
	UpdateVersioned(dbc dbctx.Context, row *types.AssessmentSession) error
	// ListStaleIDs returns in-progress sessions whose staleness column
	// fell behind the cutoff. The sweeper re-checks each one under a
	// row lock before expiring it.
	ListStaleIDs(dbc dbctx.Context, kind string, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, row *types.AssessmentSession) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Version == 0 {
		row.Version = 1
	}
	if row.StartedAt.IsZero() {
		row.StartedAt = now
	}
	if row.LastActivityAt.IsZero() {
		row.LastActivityAt = now
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	return mapDBError(t.WithContext(dbc.Ctx).Create(row).Error)
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error) {
	return r.getByID(dbc, id, false)
}

func (r *sessionRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error) {
	return r.getByID(dbc, id, true)
}

func (r *sessionRepo) getByID(dbc dbctx.Context, id uuid.UUID, forUpdate bool) (*types.AssessmentSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	q := t.WithContext(dbc.Ctx)
	if forUpdate {
		q = lockForUpdate(q)
	}
	var row types.AssessmentSession
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, mapDBError(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) GetOpenByUserAndAreaForUpdate(dbc dbctx.Context, userID uuid.UUID, area string) (*types.AssessmentSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.AssessmentSession
	if err := lockForUpdate(t.WithContext(dbc.Ctx)).
		Where("user_id = ? AND knowledge_area = ? AND status = ?", userID, area, types.SessionStatusInProgress).
		Order("started_at DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, mapDBError(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) UpdateVersioned(dbc dbctx.Context, row *types.AssessmentSession) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	expected := row.Version
	row.Version = expected + 1
	row.UpdatedAt = time.Now().UTC()

	res := t.WithContext(dbc.Ctx).
		Model(&types.AssessmentSession{}).
		Where("id = ? AND version = ?", row.ID, expected).
		Updates(map[string]interface{}{
			"status":           row.Status,
			"version":          row.Version,
			"answered_count":   row.AnsweredCount,
			"correct_count":    row.CorrectCount,
			"is_paused":        row.IsPaused,
			"last_activity_at": row.LastActivityAt,
			"ended_at":         row.EndedAt,
			"updated_at":       row.UpdatedAt,
		})
	if res.Error != nil {
		row.Version = expected
		return mapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		row.Version = expected
		return core.ConflictError(fmt.Sprintf("session %s version %d is stale", row.ID, expected))
	}
	return nil
}

func (r *sessionRepo) ListStaleIDs(dbc dbctx.Context, kind string, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	// Diagnostics expire from creation time; quizzes from last activity.
	column := "last_activity_at"
	if kind == types.SessionKindDiagnostic {
		column = "started_at"
	}
	var ids []uuid.UUID
	if err := t.WithContext(dbc.Ctx).
		Model(&types.AssessmentSession{}).
		Where("kind = ? AND status = ? AND "+column+" < ?", kind, types.SessionStatusInProgress, cutoff).
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, mapDBError(err)
	}
	return ids, nil
}
