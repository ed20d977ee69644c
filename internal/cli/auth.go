package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/session"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "MASONRY_PASSWORD"

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var (
		username string
		password string
		guest    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the gallery API",
		Long: `Exchange credentials for an access token and store the session locally.

The password is read from --password or the ` + passwordEnv + ` environment
variable. --guest signs in with the shared guest account, which can browse
but not delete. Sessions are stored in ~/.config/masonry/sessions/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if existing, _ := loadSession(ctx); existing != nil {
				c.ui().info("Already logged in as %s", existing.Username)
				c.ui().detail("Run '%s logout' first to re-authenticate", appName)
				return nil
			}
			if guest {
				username, password = session.GuestCredentials()
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if username == "" || password == "" {
				return fmt.Errorf("--username and a password are required (or use --guest)")
			}
			_, err := c.runLogin(ctx, username, password, guest)
			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default $"+passwordEnv+")")
	cmd.Flags().BoolVar(&guest, "guest", false, "sign in as the guest account")

	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			c.ui().success("Logged out")
			return nil
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("not logged in (run '%s login' first)", appName)
			}

			c.ui().success("Gallery Session")
			c.ui().keyValue("Username", sess.Username)
			if sess.Guest {
				c.ui().keyValue("Account", StyleWarning.Render("guest (read-only)"))
			} else {
				c.ui().keyValue("User ID", fmt.Sprint(sess.UserID))
			}
			c.ui().keyValue("API", StyleLink.Render(c.cfg.API.BaseURL))
			c.ui().keyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006 15:04"))
			c.ui().keyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006 15:04"))
			return nil
		},
	}
}

// =============================================================================
// Session Management
// =============================================================================

// loadSession loads the CLI session; nil, nil when logged out.
func loadSession(ctx context.Context) (*session.Session, error) {
	store, err := session.NewCLIStore(sessionDir())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	sess, err := store.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func saveSession(ctx context.Context, sess *session.Session) error {
	store, err := session.NewCLIStore(sessionDir())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	return store.SaveSession(ctx, sess)
}

func deleteSession(ctx context.Context) error {
	store, err := session.NewCLIStore(sessionDir())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	return store.DeleteSession(ctx)
}

func (c *CLI) runLogin(ctx context.Context, username, password string, guest bool) (*session.Session, error) {
	client, err := gallery.NewClient(c.cfg.API.BaseURL, gallery.WithClientLogger(c.Logger))
	if err != nil {
		return nil, err
	}

	spinner := newSpinnerWithContext(ctx, "Signing in...")
	spinner.Start()
	pair, err := client.ObtainToken(ctx, username, password)
	if err != nil {
		spinner.StopWithError("Sign-in failed")
		return nil, err
	}
	spinner.Stop()

	sess := session.New(pair.Access, pair.Refresh, username)
	if guest {
		sess = session.Guest(pair.Access, pair.Refresh)
	}
	if err := saveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	c.ui().success("Logged in as %s", sess.Username)
	return sess, nil
}
