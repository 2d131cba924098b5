package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type AnswerEventRepo interface {
	GetBySessionAndKey(dbc dbctx.Context, sessionID uuid.UUID, idemKey string) (*types.AnswerEvent, error)
	// Insert persists the event. A duplicate (session, idempotency key)
	// surfaces as a conflict from the store's unique index.
	Insert(dbc dbctx.Context, row *types.AnswerEvent) error
	ListQuestionIDsBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]uuid.UUID, error)
	CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
}

type answerEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerEventRepo(db *gorm.DB, baseLog *logger.Logger) AnswerEventRepo {
	return &answerEventRepo{db: db, log: baseLog.With("repo", "AnswerEventRepo")}
}

func (r *answerEventRepo) GetBySessionAndKey(dbc dbctx.Context, sessionID uuid.UUID, idemKey string) (*types.AnswerEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sessionID == uuid.Nil || idemKey == "" {
		return nil, nil
	}
	var row types.AnswerEvent
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ? AND idempotency_key = ?", sessionID, idemKey).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, mapDBError(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *answerEventRepo) Insert(dbc dbctx.Context, row *types.AnswerEvent) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return mapDBError(t.WithContext(dbc.Ctx).Create(row).Error)
}

func (r *answerEventRepo) ListQuestionIDsBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if sessionID == uuid.Nil {
		return ids, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.AnswerEvent{}).
		Where("session_id = ?", sessionID).
		Pluck("question_id", &ids).Error; err != nil {
		return nil, mapDBError(err)
	}
	return ids, nil
}

func (r *answerEventRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sessionID == uuid.Nil {
		return 0, nil
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.AnswerEvent{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error; err != nil {
		return 0, mapDBError(err)
	}
	return n, nil
}
