package repository

import (
	"github.com/lunasphere/account-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User           UserRepository
	LinkedIdentity LinkedIdentityRepository
	Tag            TagRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		LinkedIdentity: NewLinkedIdentityRepository(db),
		Tag:            NewTagRepository(db),
	}
}
