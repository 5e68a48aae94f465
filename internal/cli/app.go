// Package cli implements the operator command line of the storefront:
// creating admin accounts and switching accounts on or off directly
// against the credential store.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/logging"
	"github.com/slange/storefront/internal/server/auth"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/models"
	"github.com/slange/storefront/internal/server/repositories/repomanager"
	"github.com/slange/storefront/internal/server/services"
)

var ErrUsage = errors.New("usage")

const usage = `usage: storefront-cli [config flags] <command>

commands:
  create-admin                     create an admin, or promote an existing account
  set-active <email> <true|false>  activate or deactivate an account
  help                             show this text`

// AdminService is the part of services.UserService the CLI drives.
type AdminService interface {
	EnsureAdmin(ctx context.Context, in services.RegisterInput) (*models.User, bool, error)
	SetActiveByEmail(ctx context.Context, email string, active bool) (*models.User, error)
}

type App struct {
	service AdminService
	reader  *bufio.Reader
	out     io.Writer
	close   func(ctx context.Context) error
}

// NewApp connects to the configured store and builds the user service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, flush, err := logging.New(c.LogBackend, false, os.Stderr)
	if err != nil {
		return nil, err
	}

	store, err := repomanager.Open(ctx, c)
	if err != nil {
		flush()
		return nil, fmt.Errorf("store init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close(ctx)
		flush()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us, err := services.NewUserService(store, auth.NewTokenIssuer(c.SecretKey), auth.NewHasher(c.PasswordHashCost),
		services.NewLogMailer(logger, c.FrontendURL, false), logger, c)
	if err != nil {
		_ = store.Close(ctx)
		flush()
		return nil, err
	}

	closeFn := func(ctx context.Context) error {
		defer flush()
		return store.Close(ctx)
	}

	return newApp(us, bufio.NewReader(os.Stdin), os.Stdout, closeFn), nil
}

func newApp(s AdminService, r *bufio.Reader, w io.Writer, closeFn func(context.Context) error) *App {
	return &App{service: s, reader: r, out: w, close: closeFn}
}

// Run executes the command in args and releases the store.
func (a *App) Run(ctx context.Context, args []string) error {
	defer func() {
		if a.close != nil {
			_ = a.close(ctx)
		}
	}()

	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "create-admin":
		return a.CreateAdmin(ctx)
	case "set-active":
		if len(args) != 3 {
			fmt.Fprintln(a.out, usage)
			return ErrUsage
		}
		active, err := strconv.ParseBool(args[2])
		if err != nil {
			fmt.Fprintln(a.out, usage)
			return ErrUsage
		}
		return a.SetActive(ctx, args[1], active)
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n%s\n", args[0], usage)
		return ErrUsage
	}
}

// CreateAdmin prompts for the account details and a password entered twice.
func (a *App) CreateAdmin(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	firstName, err := GetSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	lastName, err := GetSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	user, created, err := a.service.EnsureAdmin(ctx, services.RegisterInput{
		Email:     email,
		Password:  string(password),
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return describe(err)
	}

	if created {
		fmt.Fprintf(a.out, "Admin %s created (id %s)\n", user.Email, user.ID)
	} else {
		fmt.Fprintf(a.out, "Existing account %s promoted to admin (id %s)\n", user.Email, user.ID)
	}
	return nil
}

func (a *App) SetActive(ctx context.Context, email string, active bool) error {
	user, err := a.service.SetActiveByEmail(ctx, email, active)
	if err != nil {
		return describe(err)
	}

	state := "deactivated"
	if user.IsActive {
		state = "activated"
	}
	fmt.Fprintf(a.out, "Account %s %s\n", user.Email, state)
	return nil
}

// describe turns a service error into one line with any field messages.
func describe(err error) error {
	var e *common.Error
	if !errors.As(err, &e) {
		return err
	}
	msg := e.Message
	for field, m := range e.Fields {
		msg += fmt.Sprintf("; %s: %s", field, m)
	}
	if e.Kind == common.KindInternal && e.Err != nil {
		return fmt.Errorf("%s: %w", msg, e.Err)
	}
	return errors.New(msg)
}
