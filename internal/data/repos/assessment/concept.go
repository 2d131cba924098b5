package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type ConceptRepo interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error)
	ListByKnowledgeArea(dbc dbctx.Context, area string) ([]*types.Concept, error)
	// EdgesInto returns prerequisite edges pointing at the given
	// concepts (the edges that can gate them).
	EdgesInto(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.ConceptEdge, error)
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{db: db, log: baseLog.With("repo", "ConceptRepo")}
}

func (r *conceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Concept
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (r *conceptRepo) ListByKnowledgeArea(dbc dbctx.Context, area string) ([]*types.Concept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Concept
	if area == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("knowledge_area = ?", area).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (r *conceptRepo) EdgesInto(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.ConceptEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ConceptEdge
	if len(conceptIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("concept_id IN ?", conceptIDs).
		Find(&out).Error; err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}
