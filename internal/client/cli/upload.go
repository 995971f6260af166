package cli

import (
	"context"
	"log"

	"github.com/dmitrijs2005/tzikbal/internal/client/client"
	"github.com/dmitrijs2005/tzikbal/internal/filex"
)

func (a *App) Upload(ctx context.Context, path string) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return client.ErrNotLoggedIn
	}

	f, name, size, err := filex.OpenRegular(path)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer f.Close()

	url, err := a.api.Upload(ctx, name, f)
	if err != nil {
		reportError("Upload", err)
		return err
	}

	log.Printf("Uploaded %s (%d bytes)", name, size)
	printlnFn(url)
	return nil
}
