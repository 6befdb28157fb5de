// Package cli contains the crew command surface.
package cli

import (
	"fmt"
	"os"

	"github.com/example/crew/internal/db"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/store"
)

// projectContext resolves the working directory and its project hash.
func projectContext() (cwd, projectHash string, err error) {
	cwd, err = os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return cwd, identity.ProjectHash(cwd), nil
}

// openStore opens the global capsule store.
func openStore() (*store.Store, error) {
	conn, err := db.GetDB()
	if err != nil {
		return nil, err
	}
	return store.New(conn), nil
}
