// Package admin implements operator commands that run against the database
// directly, without going through the gRPC service.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"golang.org/x/term"
)

// UserCreator is the part of the user directory the commands need.
type UserCreator interface {
	Create(ctx context.Context, draft models.UserDraft) (*models.User, error)
}

// PasswordReader obtains the password interactively.
type PasswordReader func(prompt string) (string, error)

var ErrPasswordMismatch = errors.New("passwords do not match")

// TerminalPasswordReader reads without echo when stdin is a terminal and
// falls back to a plain line read otherwise, so the password can be piped.
func TerminalPasswordReader(stdin *os.File, prompt io.Writer) PasswordReader {
	reader := bufio.NewReader(stdin)
	return func(msg string) (string, error) {
		fmt.Fprint(prompt, msg)
		fd := int(stdin.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(prompt)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// CreateSuperuser parses "-u <username> -e <email>" from args, asks for the
// password twice and creates an active superuser.
func CreateSuperuser(ctx context.Context, args []string, users UserCreator, readPassword PasswordReader, logger logging.Logger) (*models.User, error) {
	fs := flag.NewFlagSet("create-superuser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userName := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *userName == "" || *email == "" {
		return nil, errors.New("usage: create-superuser -u <username> -e <email>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	user, err := users.Create(ctx, models.UserDraft{
		UserName:    *userName,
		Email:       *email,
		Password:    password,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "superuser created", "user_id", user.ID, "username", user.UserName)
	return user, nil
}
