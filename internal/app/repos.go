package app

import (
	"gorm.io/gorm"

	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type Repos struct {
	Beliefs   repos.BeliefStateRepo
	Concepts  repos.ConceptRepo
	Questions repos.QuestionRepo
	Sessions  repos.SessionRepo
	Answers   repos.AnswerEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Beliefs:   repos.NewBeliefStateRepo(db, log),
		Concepts:  repos.NewConceptRepo(db, log),
		Questions: repos.NewQuestionRepo(db, log),
		Sessions:  repos.NewSessionRepo(db, log),
		Answers:   repos.NewAnswerEventRepo(db, log),
	}
}
