package memory

import (
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository for development and tests
type Memory struct {
	petition *petitionRepository
	thread   *threadRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		petition: newPetitionRepository(),
		thread:   newThreadRepository(),
	}
}

func (m *Memory) Petition() interfaces.PetitionRepository {
	return m.petition
}

func (m *Memory) Thread() interfaces.ThreadRepository {
	return m.thread
}

func (m *Memory) Close() error {
	return nil
}
