package repository

import "debate_arena/internal/storage"

type Repositories struct {
	User        UserRepository
	Debate      DebateRepository
	Argument    ArgumentRepository
	JoinRequest JoinRequestRepository
	Analysis    AnalysisRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Debate:      NewDebateRepository(db),
		Argument:    NewArgumentRepository(db),
		JoinRequest: NewJoinRequestRepository(db),
		Analysis:    NewAnalysisRepository(db),
	}
}
