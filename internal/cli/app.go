// Package cli implements spendlogctl, the terminal front end of the
// SpendLog REST client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boddenberg/spendlog/internal/currency"
	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/client"
	"github.com/boddenberg/spendlog/internal/session"
	"github.com/boddenberg/spendlog/internal/toast"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// App holds everything a command needs.
type App struct {
	API      *client.Client
	Session  *session.Manager
	Currency *currency.Preference
	Toasts   *toast.Queue
	Logger   *zap.Logger

	Out      io.Writer
	Err      io.Writer
	PageSize int
	Version  string
}

// New wires the currency preference to the session so it reloads on
// every sign-in.
func New(api *client.Client, sess *session.Manager, logger *zap.Logger) *App {
	a := &App{
		API:      api,
		Session:  sess,
		Currency: currency.NewPreference(api, logger),
		Toasts:   toast.NewQueue(toast.DefaultTTL),
		Logger:   logger,
		Out:      os.Stdout,
		Err:      os.Stderr,
		PageSize: domain.DefaultPageLimit,
	}
	sess.SetSyncer(api)
	sess.Subscribe(a.Currency.OnAuthChange)
	return a
}

// CLI builds the command tree.
func (a *App) CLI() *cli.App {
	return &cli.App{
		Name:                 "spendlogctl",
		Usage:                "track receipts, pending items and income from the terminal",
		Version:              a.Version,
		Writer:               a.Out,
		ErrWriter:            a.Err,
		EnableBashCompletion: true,
		Before: func(c *cli.Context) error {
			if err := a.Session.Restore(c.Context); err != nil {
				a.Logger.Warn("could not restore session", zap.Error(err))
			}
			return nil
		},
		After: func(*cli.Context) error {
			a.flushToasts()
			return nil
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			a.loginCommand(),
			a.signupCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.accountCommand(),
			a.receiptsCommand(),
			a.pendingCommand(),
			a.incomeCommand(),
			a.dashboardCommand(),
			a.settingsCommand(),
			a.exportCommand(),
		},
	}
}

// ============================================================
// Feedback
// ============================================================

func (a *App) success(format string, args ...any) {
	a.Toasts.Show(fmt.Sprintf(format, args...), toast.Success)
}

func (a *App) info(format string, args ...any) {
	a.Toasts.Show(fmt.Sprintf(format, args...), toast.Info)
}

// fail queues an error toast for err and returns an exit error.
func (a *App) fail(action string, err error) error {
	msg := fmt.Sprintf("Failed to %s: %s", action, describe(err))
	a.Toasts.Show(msg, toast.Error)
	return cli.Exit("", 1)
}

func (a *App) flushToasts() {
	for _, t := range a.Toasts.List() {
		fmt.Fprintf(a.Err, "[%s] %s\n", t.Type, t.Message)
		a.Toasts.Dismiss(t.ID)
	}
}

func describe(err error) error {
	var (
		unauthorized *domain.ErrUnauthorized
		notFound     *domain.ErrNotFound
		timeout      *domain.ErrTimeout
	)
	switch {
	case errors.As(err, &unauthorized):
		return errors.New("not signed in or session expired, run `spendlogctl login`")
	case errors.As(err, &notFound):
		return errors.New("not found")
	case errors.As(err, &timeout):
		return fmt.Errorf("%s timed out", timeout.Operation)
	}
	return err
}

func (a *App) requireUser() (*domain.AuthUser, error) {
	u := a.Session.User()
	if u == nil {
		return nil, &domain.ErrUnauthorized{}
	}
	return u, nil
}

func parseDate(s string) (domain.Date, error) {
	if s == "" {
		return domain.Today(), nil
	}
	return domain.ParseDate(s)
}

func parseRange(c *cli.Context) (domain.DateRange, error) {
	var r domain.DateRange
	var err error
	if s := c.String("from"); s != "" {
		if r.Start, err = domain.ParseDate(s); err != nil {
			return r, fmt.Errorf("--from: %w", err)
		}
	}
	if s := c.String("to"); s != "" {
		if r.End, err = domain.ParseDate(s); err != nil {
			return r, fmt.Errorf("--to: %w", err)
		}
	}
	return r, nil
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "start date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "to", Usage: "end date (YYYY-MM-DD)"},
	}
}

func pageFlags(defaultSort string) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "page number"},
		&cli.IntFlag{Name: "page-size", Usage: "rows per page"},
		&cli.StringFlag{Name: "sort", Value: defaultSort, Usage: "sort column"},
		&cli.BoolFlag{Name: "asc", Usage: "ascending order"},
	}
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanizeTime(t)
}
