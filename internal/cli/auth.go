package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mstodo/mstodo-cli/internal/api"
	"github.com/mstodo/mstodo-cli/internal/auth"
	"github.com/mstodo/mstodo-cli/internal/config"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  `Manage authentication with the Microsoft identity platform.`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var noBrowser bool
	var force bool
	var tenant string
	var clientID string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Microsoft To Do",
		Long: `Authenticate using the OAuth2 device code flow.

A short code is displayed; enter it at the verification URL in any browser,
on any device. The command polls until you finish or the code expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewDefaultStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			loginConfig := &auth.LoginConfig{
				NoBrowser: noBrowser,
				Force:     force,
				Tenant:    tenant,
				ClientID:  clientID,
			}
			if loginConfig.Tenant == "" {
				loginConfig.Tenant = viper.GetString("tenant")
			}
			if loginConfig.ClientID == "" {
				loginConfig.ClientID = viper.GetString("client_id")
			}

			manager := auth.NewManager(store, loginConfig)

			ctx, cancel := context.WithTimeout(cmd.Context(), auth.LoginTimeout)
			defer cancel()

			// Check if already logged in
			if !force {
				if status := manager.Status(); status.LoggedIn && !status.NeedsRefresh {
					color.Green("✅ Already logged in")
					if cfg, err := config.Load(); err == nil {
						if user := cfg.GetCurrentUser(); user != nil && user.Username != "" {
							fmt.Printf("   Signed in as: %s\n", color.CyanString(user.Username))
						}
					}
					fmt.Println()
					fmt.Printf("Use %s to force re-authentication\n", color.CyanString("mstodo auth login --force"))
					return nil
				}
			}

			challenge, err := manager.StartDeviceFlow(ctx)
			if err != nil {
				return fmt.Errorf("failed to start authentication: %w", err)
			}

			// The provider supplies a ready-made instruction string
			if challenge.Message != "" {
				fmt.Println(challenge.Message)
			} else {
				fmt.Println("🌐 To complete sign-in, visit:")
				color.Cyan("   %s", challenge.VerificationURI)
				fmt.Println()
				fmt.Println("📋 and enter code:")
				color.Yellow("   %s", challenge.UserCode)
			}
			fmt.Println()

			if !noBrowser {
				fmt.Println("🚀 Opening browser...")
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Waiting for authorization..."
			sp.Start()

			creds, err := manager.CompleteDeviceFlow(ctx, challenge)
			sp.Stop()
			if err != nil {
				return loginError(err)
			}

			fmt.Println()
			color.Green("✅ Successfully signed in!")

			saveAccountInfo(ctx, manager)

			if creds.ExpiresAt != nil {
				duration := time.Until(*creds.ExpiresAt)
				fmt.Printf("   Access token valid for %dh %dm\n",
					int(duration.Hours()),
					int(duration.Minutes())%60)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically")
	cmd.Flags().BoolVar(&force, "force", false, "Force re-authentication even if already logged in")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Override identity platform tenant")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Override OAuth client ID (for testing)")

	return cmd
}

// loginError maps the auth error taxonomy onto user-facing messages
func loginError(err error) error {
	var authErr *auth.AuthorizationError
	if errors.As(err, &authErr) {
		switch authErr.Outcome {
		case auth.OutcomeDeclined:
			return fmt.Errorf("sign-in was declined in the browser")
		case auth.OutcomeExpired:
			return fmt.Errorf("the device code expired before sign-in completed; run login again")
		case auth.OutcomeBadVerificationCode:
			return fmt.Errorf("the provider rejected the device code: %w", authErr)
		}
	}

	var netErr *auth.NetworkError
	if errors.As(err, &netErr) {
		return fmt.Errorf("could not reach the identity provider: %w", netErr.Cause)
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("sign-in cancelled")
	}

	return fmt.Errorf("login failed: %w", err)
}

// saveAccountInfo records who signed in, for display in auth status. Best
// effort: failures are warnings, the login itself already succeeded.
func saveAccountInfo(ctx context.Context, manager *auth.Manager) {
	cfg, err := config.Load()
	if err != nil {
		Warn("failed to load config: %v", err)
		return
	}

	client := api.NewClient(manager, "")
	user, err := client.GetMe(ctx)
	if err != nil {
		if IsVerbose() {
			Warn("failed to fetch profile: %v", err)
		}
		return
	}

	fmt.Printf("   Signed in as: %s\n", color.CyanString(user.UserPrincipalName))

	err = cfg.SetCurrentUser(&config.UserInfo{
		Username:  user.UserPrincipalName,
		Name:      user.DisplayName,
		UserID:    user.ID,
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		Warn("failed to save account info: %v", err)
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewDefaultStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			manager := auth.NewManager(store, nil)

			if !manager.Status().LoggedIn {
				color.Yellow("⚠️  Not logged in")
				return nil
			}

			if !yes {
				confirm := false
				prompt := &survey.Confirm{
					Message: "Remove stored credentials?",
					Default: true,
				}
				if err := survey.AskOne(prompt, &confirm); err != nil {
					return fmt.Errorf("failed to get confirmation: %w", err)
				}
				if !confirm {
					color.Yellow("Logout cancelled.")
					return nil
				}
			}

			if err := manager.Logout(); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}

			if cfg, err := config.Load(); err == nil {
				_ = cfg.ClearCurrentUser()
			}

			color.Green("✅ Successfully signed out")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	var showToken bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  `Display current authentication status and token information.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewDefaultStore()
			if err != nil {
				return fmt.Errorf("failed to initialize credential store: %w", err)
			}

			manager := auth.NewManager(store, nil)
			status := manager.Status()

			// With --show-token, output only the token for scripting
			if showToken {
				if !status.LoggedIn || status.Credentials == nil {
					return fmt.Errorf("not logged in")
				}
				fmt.Print(status.Credentials.AccessToken)
				return nil
			}

			color.Cyan("→ Authentication Status\n")
			fmt.Println()

			if !status.LoggedIn {
				fmt.Println("🔐 Not logged in")
				fmt.Println()
				fmt.Printf("Run %s to authenticate\n", color.CyanString("mstodo auth login"))
				return nil
			}

			color.Green("✅ Logged in")
			if cfg, err := config.Load(); err == nil {
				if user := cfg.GetCurrentUser(); user != nil && user.Username != "" {
					fmt.Printf(" as %s\n", color.CyanString(user.Username))
				} else {
					fmt.Println()
				}
			} else {
				fmt.Println()
			}
			fmt.Println()

			if creds := status.Credentials; creds != nil {
				if creds.ExpiresAt != nil {
					if creds.IsExpired() {
						color.Yellow("Access Token: ⚠️  Expired")
						if creds.RefreshToken != "" {
							fmt.Println("              (will auto-refresh on next use)")
						}
					} else {
						duration := time.Until(*creds.ExpiresAt)
						fmt.Printf("Access Token: Valid for %s\n",
							color.GreenString("%dh %dm", int(duration.Hours()), int(duration.Minutes())%60))
					}
				} else {
					color.Green("Access Token: Valid")
				}

				if creds.RefreshToken != "" {
					color.Green("Refresh Token: Available")
				}
				if creds.Scope != "" {
					fmt.Printf("Scopes: %s\n", creds.Scope)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "Output only the access token (for use in scripts)")
	return cmd
}
