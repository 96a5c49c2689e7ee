// Package cli implements the interactive blogauth client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/blogauth/internal/client/apiclient"
)

// API is the part of apiclient.Client the REPL drives.
type API interface {
	Register(ctx context.Context, userName string, password []byte) (*apiclient.User, error)
	Login(ctx context.Context, userName string, password []byte) (*apiclient.User, error)
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*apiclient.User, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	User() *apiclient.User
}

type App struct {
	api    API
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(api API, in io.Reader, out io.Writer) *App {
	return &App{api: api, reader: bufio.NewReader(in), out: out}
}

func (a *App) getStatus() string {
	if u := a.api.User(); u != nil {
		return "(" + u.UserName + ") "
	}
	return ""
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// Run reads commands until EOF, "exit" or ctx cancellation.
func (a *App) Run(ctx context.Context) {
	a.printf("blogauth CLI (type 'help' for commands)\n")

	for ctx.Err() == nil {
		a.printf("blogauth %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.api.User() != nil {
				a.printf("Available commands: whoami, refresh, logout, logoutall, exit\n")
			} else {
				a.printf("Available commands: register, login, exit\n")
			}
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "whoami":
			a.whoami(ctx)
		case "refresh":
			a.report(a.api.Refresh(ctx), "Tokens rotated")
		case "logout":
			a.report(a.api.Logout(ctx), "Logged out")
		case "logoutall":
			a.report(a.api.LogoutAll(ctx), "All sessions revoked")
		case "exit", "quit":
			a.printf("Bye!\n")
			return
		default:
			a.printf("Unknown command: %s\n", cmd)
		}
	}
}

func (a *App) credentials() (string, []byte, bool) {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		a.printf("error: %v\n", err)
		return "", nil, false
	}
	pw, err := GetPassword(a.reader, a.out)
	if err != nil {
		a.printf("error: %v\n", err)
		return "", nil, false
	}
	return userName, pw, true
}

func (a *App) register(ctx context.Context) {
	userName, pw, ok := a.credentials()
	if !ok {
		return
	}
	defer wipe(pw)

	u, err := a.api.Register(ctx, userName, pw)
	if err != nil {
		a.printf("error: %s\n", describe(err))
		return
	}
	a.printf("Registered %s (%s)\n", u.UserName, u.ID)
}

func (a *App) login(ctx context.Context) {
	userName, pw, ok := a.credentials()
	if !ok {
		return
	}
	defer wipe(pw)

	u, err := a.api.Login(ctx, userName, pw)
	if err != nil {
		a.printf("error: %s\n", describe(err))
		return
	}
	a.printf("Welcome, %s\n", u.UserName)
}

func (a *App) whoami(ctx context.Context) {
	u, err := a.api.Me(ctx)
	if err != nil {
		a.printf("error: %s\n", describe(err))
		return
	}
	a.printf("%s (%s)\n", u.UserName, u.ID)
}

func (a *App) report(err error, success string) {
	if err != nil {
		a.printf("error: %s\n", describe(err))
		return
	}
	a.printf("%s\n", success)
}

func describe(err error) string {
	switch {
	case errors.Is(err, apiclient.ErrNotLoggedIn):
		return "not logged in, use 'login' first"
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "session expired, please log in again"
	case errors.Is(err, apiclient.ErrUnavailable):
		return "server unavailable, try again later"
	default:
		return err.Error()
	}
}
