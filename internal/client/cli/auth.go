package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dmitrijs2005/tzikbal/internal/client/client"
	"github.com/dmitrijs2005/tzikbal/internal/client/models"
	"github.com/dmitrijs2005/tzikbal/internal/common"
)

func reportError(action string, err error) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		log.Printf("%s failed: %s", action, apiErr.Message)
	case errors.Is(err, client.ErrUnavailable):
		log.Printf("%s failed: server unavailable", action)
	default:
		log.Printf("%s failed: %v", action, err)
	}
}

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "-Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(password)

	_, err = a.api.Register(ctx, models.Registration{Name: name, Email: email, Password: string(password)})
	if err != nil {
		reportError("Registration", err)
		return err
	}

	printlnFn("Registered. You can login now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		reportError("Login", err)
		return err
	}
	if u == nil {
		u = &models.User{Email: email}
	}

	a.setUser(u)
	a.setMode(ModeOnline)
	log.Printf("Login successful")
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Please login first")
		return client.ErrNotLoggedIn
	}

	u, err := a.api.Profile(ctx)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			a.setUser(nil)
		}
		reportError("Profile", err)
		return err
	}

	a.setUser(u)
	printlnFn(fmt.Sprintf("%s <%s>", u.Name, u.Email))
	printlnFn(fmt.Sprintf("provider: %s, lang: %s, theme: %s", u.Provider, u.Preferences.Lang, u.Preferences.Theme))
	if u.Picture != "" {
		printlnFn("picture:", u.Picture)
	}
	if u.Phone != "" {
		printlnFn("phone:", u.Phone)
	}
	if !u.LastLogin.IsZero() {
		printlnFn("last login:", u.LastLogin.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	a.setUser(nil)
	printlnFn("Logged out")
	return nil
}
