package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/pkceauth/internal/client/api"
	"github.com/iudanet/pkceauth/internal/validation"
)

func (c *Cli) newLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to server (PKCE authorization code flow)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				username, err = c.io.ReadInput("Username: ")
				if err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
			}
			if password == "" {
				password, err = c.io.ReadPassword("Password: ")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			if err := validation.ValidateLoginInput(username, password); err != nil {
				return err
			}

			profile, err := c.client.Login(cmd.Context(), username, password)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					return errors.New("login failed: invalid credentials")
				}
				return err
			}

			c.io.Printf("Logged in as %s\n", profile.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if empty, not recommended)")
	return cmd
}

func (c *Cli) newProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show current user profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := c.client.Profile(cmd.Context())
			if err != nil {
				return notLoggedIn(err)
			}

			c.io.Printf("Username:   %s\n", profile.Username)
			c.io.Printf("User ID:    %s\n", profile.Subject)
			c.io.Printf("Token ID:   %s\n", profile.ID)
			c.io.Printf("Issuer:     %s\n", profile.Issuer)
			c.io.Printf("Issued at:  %s\n", formatUnix(profile.IssuedAt))
			c.io.Printf("Expires at: %s\n", formatUnix(profile.ExpiresAt))
			return nil
		},
	}
}

func (c *Cli) newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate refresh token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Refresh(cmd.Context()); err != nil {
				return notLoggedIn(err)
			}
			c.io.Println("Tokens refreshed")
			return nil
		},
	}
}

func (c *Cli) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and forget stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// локальное состояние очищается даже при ошибке сервера
			if err := c.client.Logout(cmd.Context()); err != nil {
				c.logger.Debug("server logout failed", "error", err)
				c.io.Println("Warning: server logout failed, local session cleared")
				return nil
			}
			c.io.Println("Logged out")
			return nil
		},
	}
}

func (c *Cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.io.Printf("Server:  %s\n", c.serverURL)

			health, err := c.client.Health(cmd.Context())
			if err != nil {
				c.io.Printf("Health:  unavailable (%v)\n", err)
			} else {
				c.io.Printf("Health:  %s (version %s)\n", health.Status, health.Version)
			}

			if c.client.HasRefreshCookie() {
				c.io.Println("Session: stored (run 'profile' to verify)")
			} else {
				c.io.Println("Session: not logged in")
			}
			return nil
		},
	}
}

// notLoggedIn заменяет ошибки истекшей сессии понятным сообщением
func notLoggedIn(err error) error {
	if errors.Is(err, api.ErrSessionExpired) || errors.Is(err, api.ErrUnauthorized) {
		return errors.New("not logged in, run 'login' first")
	}
	return err
}

func formatUnix(sec int64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
