package assessment

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

var forUpdateClause = clause.Locking{Strength: "UPDATE"}

// Prior is the Beta prior used when a belief row is created lazily.
type Prior struct {
	Alpha float64
	Beta  float64
}

// UninformativePrior is Beta(1,1).
var UninformativePrior = Prior{Alpha: 1, Beta: 1}

type BeliefStateRepo interface {
	// LoadForUpdate returns the belief row for every requested concept,
	// locked for the duration of the enclosing transaction. Missing rows
	// are created with the given prior before returning; a valid concept
	// never yields "not found".
	LoadForUpdate(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) (map[uuid.UUID]*types.BeliefState, error)
	// PersistAll writes all rows as one atomic unit; callers must invoke
	// it inside the transaction that locked the rows.
	PersistAll(dbc dbctx.Context, rows []*types.BeliefState) error
	// GetByUserAndConcepts is the unlocked read used by selection and
	// gating. Missing concepts are simply absent from the result.
	GetByUserAndConcepts(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID) (map[uuid.UUID]*types.BeliefState, error)
	// InitializeMissing creates rows with the prior for concepts that
	// have none yet and reports how many were created. Idempotent.
	InitializeMissing(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) (int, error)
	// ResetToPrior re-initializes existing rows in place. Rows are never
	// deleted.
	ResetToPrior(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) error
}

type beliefStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBeliefStateRepo(db *gorm.DB, baseLog *logger.Logger) BeliefStateRepo {
	return &beliefStateRepo{db: db, log: baseLog.With("repo", "BeliefStateRepo")}
}

func (r *beliefStateRepo) LoadForUpdate(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) (map[uuid.UUID]*types.BeliefState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := make(map[uuid.UUID]*types.BeliefState, len(conceptIDs))
	if userID == uuid.Nil || len(conceptIDs) == 0 {
		return out, nil
	}

	// Lock rows in a stable order so two submissions touching the same
	// concepts cannot deadlock each other.
	ids := append([]uuid.UUID(nil), conceptIDs...)
	sortUUIDs(ids)

	var rows []*types.BeliefState
	if err := lockForUpdate(t.WithContext(dbc.Ctx)).
		Where("user_id = ? AND concept_id IN ?", userID, ids).
		Order("concept_id ASC").
		Find(&rows).Error; err != nil {
		return nil, mapDBError(err)
	}
	for _, row := range rows {
		out[row.ConceptID] = row
	}

	now := time.Now().UTC()
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		row := &types.BeliefState{
			ID:          uuid.New(),
			UserID:      userID,
			ConceptID:   id,
			Alpha:       prior.Alpha,
			Beta:        prior.Beta,
			LastUpdated: now,
			CreatedAt:   now,
		}
		if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
			return nil, mapDBError(err)
		}
		out[id] = row
	}
	return out, nil
}

func (r *beliefStateRepo) PersistAll(dbc dbctx.Context, rows []*types.BeliefState) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.LastUpdated = now
		if err := t.WithContext(dbc.Ctx).
			Model(&types.BeliefState{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"alpha":          row.Alpha,
				"beta":           row.Beta,
				"response_count": row.ResponseCount,
				"last_updated":   row.LastUpdated,
			}).Error; err != nil {
			return mapDBError(err)
		}
	}
	return nil
}

func (r *beliefStateRepo) GetByUserAndConcepts(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID) (map[uuid.UUID]*types.BeliefState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := make(map[uuid.UUID]*types.BeliefState, len(conceptIDs))
	if userID == uuid.Nil || len(conceptIDs) == 0 {
		return out, nil
	}
	var rows []*types.BeliefState
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND concept_id IN ?", userID, conceptIDs).
		Find(&rows).Error; err != nil {
		return nil, mapDBError(err)
	}
	for _, row := range rows {
		out[row.ConceptID] = row
	}
	return out, nil
}

func (r *beliefStateRepo) InitializeMissing(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || len(conceptIDs) == 0 {
		return 0, nil
	}
	existing, err := r.GetByUserAndConcepts(dbc, userID, conceptIDs)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	created := 0
	for _, id := range conceptIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		row := &types.BeliefState{
			ID:          uuid.New(),
			UserID:      userID,
			ConceptID:   id,
			Alpha:       prior.Alpha,
			Beta:        prior.Beta,
			LastUpdated: now,
			CreatedAt:   now,
		}
		res := t.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "concept_id"}},
				DoNothing: true,
			}).
			Create(row)
		if res.Error != nil {
			return created, mapDBError(res.Error)
		}
		// A conflicting row inserted concurrently leaves RowsAffected at
		// zero; only actual inserts count.
		if res.RowsAffected > 0 {
			created++
		}
	}
	return created, nil
}

func (r *beliefStateRepo) ResetToPrior(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID, prior Prior) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || len(conceptIDs) == 0 {
		return nil
	}
	return mapDBError(t.WithContext(dbc.Ctx).
		Model(&types.BeliefState{}).
		Where("user_id = ? AND concept_id IN ?", userID, conceptIDs).
		Updates(map[string]interface{}{
			"alpha":          prior.Alpha,
			"beta":           prior.Beta,
			"response_count": 0,
			"last_updated":   time.Now().UTC(),
		}).Error)
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
