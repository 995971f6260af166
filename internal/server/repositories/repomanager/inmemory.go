package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tzikbal/internal/dbx"
	"github.com/dmitrijs2005/tzikbal/internal/server/repositories/users"
)

// InMemoryRepositoryManager hands out one shared in-memory users store and
// ignores the DBTX argument. Data is lost on restart.
type InMemoryRepositoryManager struct {
	users *users.InMemoryRepository
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Users(_ dbx.DBTX) users.Repository {
	return m.users
}

// RunMigrations is a no-op: there is no schema to apply.
func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
