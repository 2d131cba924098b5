// Package jobs holds the background loops the server runs alongside
// the HTTP surface.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

// SessionSweeper expires abandoned sessions: diagnostics after a
// timeout from creation, quizzes after a timeout from last activity.
// The sweep is idempotent and safe to run concurrently with live
// submissions: every candidate is re-checked under its row lock before
// being expired, so a session touched after the candidate scan stays
// alive.
type SessionSweeper struct {
	db          *gorm.DB
	sessionRepo repos.SessionRepo
	log         *logger.Logger

	Interval          time.Duration
	DiagnosticTimeout time.Duration
	QuizTimeout       time.Duration
	BatchSize         int
}

func NewSessionSweeper(db *gorm.DB, sessionRepo repos.SessionRepo, interval, diagnosticTimeout, quizTimeout time.Duration, baseLog *logger.Logger) *SessionSweeper {
	return &SessionSweeper{
		db:                db,
		sessionRepo:       sessionRepo,
		log:               baseLog.With("job", "SessionSweeper"),
		Interval:          interval,
		DiagnosticTimeout: diagnosticTimeout,
		QuizTimeout:       quizTimeout,
		BatchSize:         100,
	}
}

// Run loops until the context is canceled.
func (s *SessionSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error("sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				s.log.Info("expired stale sessions", "count", expired)
			}
		}
	}
}

// SweepOnce runs a single pass over both session kinds and returns how
// many sessions it expired.
func (s *SessionSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0
	for _, kind := range []string{types.SessionKindDiagnostic, types.SessionKindQuiz} {
		cutoff := now.Add(-s.timeoutFor(kind))
		ids, err := s.sessionRepo.ListStaleIDs(dbctx.New(ctx), kind, cutoff, s.BatchSize)
		if err != nil {
			return total, err
		}
		for _, id := range ids {
			expired, err := s.expireOne(ctx, id, kind)
			if err != nil {
				s.log.Warn("could not expire session", "session_id", id, "error", err)
				continue
			}
			if expired {
				total++
			}
		}
	}
	return total, nil
}

func (s *SessionSweeper) expireOne(ctx context.Context, id uuid.UUID, kind string) (bool, error) {
	expired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.WithTx(ctx, tx)
		sess, err := s.sessionRepo.GetByIDForUpdate(txc, id)
		if err != nil {
			return err
		}
		if sess == nil || !sess.Open() {
			return nil
		}
		// Timeout is measured against fresh timestamps under the row
		// lock; a just-updated session is left alone.
		now := time.Now().UTC()
		anchor := sess.LastActivityAt
		if kind == types.SessionKindDiagnostic {
			anchor = sess.StartedAt
		}
		if now.Sub(anchor) <= s.timeoutFor(kind) {
			return nil
		}
		sess.Status = types.SessionStatusExpired
		sess.EndedAt = &now
		if err := s.sessionRepo.UpdateVersioned(txc, sess); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *SessionSweeper) timeoutFor(kind string) time.Duration {
	if kind == types.SessionKindDiagnostic {
		return s.DiagnosticTimeout
	}
	return s.QuizTimeout
}
