package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Petition() PetitionRepository
	Thread() ThreadRepository

	Close() error
}
