package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberedpro/cybered/pkg/api"
	"github.com/cyberedpro/cybered/pkg/session"
)

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL PASSWORD",
		Short: "Log in and store the access token",
		Long: `Exchange an email and password for an access token.

The token is stored in ~/.config/cybered/sessions/ and sent as a bearer
credential with every later request until it expires or you log out.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			spinner := newSpinnerWithContext(ctx, "Logging in...")
			spinner.Start()
			sess, err := login(ctx, e, args[0], args[1])
			if err != nil {
				spinner.StopWithError("Login failed")
				return err
			}
			spinner.Stop()

			printSuccess("Logged in as %s", sess.Email)
			printDetail("Session expires %s", sess.ExpiresAt.Format("Jan 2, 2006 15:04"))
			return nil
		},
	}
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token and clear cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.DeleteSession(ctx); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			if err := e.client.Logout(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Logged out")
			if e.cfg.Auth.Token != "" {
				printWarning("A token is still configured; requests stay authenticated")
			}
			return nil
		},
	}
}

// meCommand creates the me command.
func (c *CLI) meCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := e.client.CurrentUser(ctx)
			if err != nil {
				return describe(err)
			}
			printUser(user)
			return nil
		},
	}
}

// login exchanges credentials for a token, stores it as the CLI session and
// drops any responses cached for the previous user.
func login(ctx context.Context, e *env, email, password string) (*session.Session, error) {
	token, err := e.client.Login(ctx, email, password)
	if err != nil {
		return nil, describe(err)
	}
	if !strings.EqualFold(token.TokenType, "bearer") && token.TokenType != "" {
		loggerFromContext(ctx).Warn("unexpected token type", "type", token.TokenType)
	}

	sess, err := session.New(token.AccessToken, email, session.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := e.client.Gateway().InvalidateAll(ctx); err != nil {
		loggerFromContext(ctx).Warn("clear cache after login", "err", err)
	}
	return sess, nil
}

func printUser(u *api.User) {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Email
	}
	fmt.Println(StyleTitle.Render(name))
	printKeyValue("ID", fmt.Sprint(u.ID))
	printKeyValue("Email", u.Email)
	if u.Role != "" {
		printKeyValue("Role", u.Role)
	}
	printKeyValue("Active", fmt.Sprint(u.IsActive))
}
