package models

import "time"

// Model is the contract every persistent entity satisfies. Implementations
// include [User], [LibraryTrack], [PersistedPlaylist], and [SyncJob].
type Model interface {
	// ID returns the entity's unique identifier.
	ID() string
	// CreatedAt returns when the entity was first stored.
	CreatedAt() time.Time
	// UpdatedAt returns when the entity last changed.
	UpdatedAt() time.Time
	// Validate reports whether the entity is in a storable state.
	Validate() error
}

// Repository describes CRUD access for one entity type. The repositories
// package provides the SQLite implementations.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	// List retrieves all entities matching the given column criteria.
	List(criteria map[string]any) ([]T, error)
}
