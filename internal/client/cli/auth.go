package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dkurbatov/pocketbank/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing; they point to the interactive input helpers.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, password and optional avatar path
// and creates an account. A successful registration also logs the user
// in, because the server answers with a session token.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	imagePath, err := getSimpleText(a.reader, "Path to avatar image (optional, Enter to skip)", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, username, password, imagePath); err != nil {
		printlnFn(describeError(err))
		return err
	}

	printlnFn("Welcome,", username+"!")
	return nil
}

// Login prompts for credentials and authenticates. The password is
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, username, password); err != nil {
		printlnFn(describeError(err))
		return err
	}

	printlnFn("Logged in as", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		printlnFn(describeError(err))
		return err
	}
	printlnFn("Logged out")
	return nil
}

// handleSessionErr is the application's reaction to an expired or
// rejected session: clear the stored credential and route the user back
// to login. This reaction deliberately lives outside the core.
func (a *App) handleSessionErr(ctx context.Context, err error) {
	if errors.Is(err, common.ErrUnauthenticated) {
		_ = a.auth.Logout(ctx)
		printlnFn("Session expired, please log in again.")
	}
}
