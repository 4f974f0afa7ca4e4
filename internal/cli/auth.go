package cli

import (
	"fmt"

	"github.com/boddenberg/spendlog/internal/domain"

	"github.com/urfave/cli/v2"
)

func (a *App) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with email and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"SPENDLOG_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			if err := a.Session.SignInWithPassword(c.Context, c.String("email"), c.String("password")); err != nil {
				return a.fail("sign in", err)
			}
			a.success("Signed in as %s", c.String("email"))
			return nil
		},
	}
}

func (a *App) signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"SPENDLOG_PASSWORD"}, Required: true},
			&cli.StringFlag{Name: "name", Usage: "full name"},
		},
		Action: func(c *cli.Context) error {
			confirmed, err := a.Session.SignUp(c.Context, c.String("email"), c.String("password"), c.String("name"))
			if err != nil {
				return a.fail("sign up", err)
			}
			if !confirmed {
				a.info("Check %s to confirm your account, then run `spendlogctl login`", c.String("email"))
				return nil
			}
			a.success("Account created, signed in as %s", c.String("email"))
			return nil
		},
	}
}

func (a *App) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out",
		Action: func(c *cli.Context) error {
			if err := a.Session.SignOut(c.Context); err != nil {
				a.info("Signed out locally; the server could not be reached")
				return nil
			}
			a.success("Signed out")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: func(c *cli.Context) error {
			u, err := a.requireUser()
			if err != nil {
				return a.fail("load profile", err)
			}
			profile, err := a.API.GetUser(c.Context, u.ID)
			if err != nil {
				return a.fail("load profile", err)
			}
			fmt.Fprintf(a.Out, "ID:       %s\n", profile.ID)
			fmt.Fprintf(a.Out, "Email:    %s\n", profile.Email)
			if profile.FullName != "" {
				fmt.Fprintf(a.Out, "Name:     %s\n", profile.FullName)
			}
			fmt.Fprintf(a.Out, "Currency: %s (%s)\n", a.Currency.Code(), a.Currency.Symbol())
			fmt.Fprintf(a.Out, "Joined:   %s\n", since(profile.CreatedAt))
			return nil
		},
	}
}

func (a *App) accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "manage the signed-in account",
		Subcommands: []*cli.Command{
			{
				Name:      "rename",
				Usage:     "change the display name",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					u, err := a.requireUser()
					if err != nil {
						return a.fail("update profile", err)
					}
					name := c.Args().First()
					if name == "" {
						return a.fail("update profile", fmt.Errorf("a name is required"))
					}
					if _, err := a.API.UpdateUser(c.Context, u.ID, &domain.UserUpdate{FullName: &name}); err != nil {
						return a.fail("update profile", err)
					}
					a.success("Profile updated")
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "delete the account and all of its data",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm deletion"}},
				Action: func(c *cli.Context) error {
					u, err := a.requireUser()
					if err != nil {
						return a.fail("delete account", err)
					}
					if !c.Bool("yes") {
						return a.fail("delete account", fmt.Errorf("pass --yes to confirm"))
					}
					if err := a.API.DeleteUser(c.Context, u.ID); err != nil {
						return a.fail("delete account", err)
					}
					_ = a.Session.SignOut(c.Context)
					a.success("Account deleted")
					return nil
				},
			},
		},
	}
}
