package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type QuestionRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error)
	ListByKnowledgeArea(dbc dbctx.Context, area string) ([]*types.Question, error)
	// ConceptsFor returns the tested-concept joins for a set of questions.
	ConceptsFor(dbc dbctx.Context, questionIDs []uuid.UUID) ([]*types.QuestionConcept, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Question
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, mapDBError(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *questionRepo) ListByKnowledgeArea(dbc dbctx.Context, area string) ([]*types.Question, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Question
	if area == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("knowledge_area = ?", area).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (r *questionRepo) ConceptsFor(dbc dbctx.Context, questionIDs []uuid.UUID) ([]*types.QuestionConcept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.QuestionConcept
	if len(questionIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("question_id IN ?", questionIDs).
		Find(&out).Error; err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}
