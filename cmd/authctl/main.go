package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	authclient "github.com/goliatone/go-auth-client"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "authctl",
	Short:        "Session client for the auth service",
	Long:         "authctl — log in, inspect, and manage a persisted auth session from the terminal.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("base-url", "http://localhost:8080", "Auth service base URL")
	rootCmd.PersistentFlags().String("db", defaultDBPath(), "Path to the credential database")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("authctl version %s\n", version))

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newWhoamiCmd())
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "authctl.db"
	}
	return filepath.Join(home, ".authctl", "credentials.db")
}

// openSession builds a session backed by the sqlite credential store and
// rehydrates it from disk. The returned closer releases the store and the
// refresh scheduler.
func openSession(cmd *cobra.Command) (*authclient.SessionManager, func(), error) {
	baseURL, _ := cmd.Flags().GetString("base-url")
	dbPath, _ := cmd.Flags().GetString("db")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating credential directory: %w", err)
		}
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Logger()
	logger := authclient.NewZerologAdapter(zl)

	ctx := cmd.Context()

	store, err := authclient.OpenSQLiteStore(ctx, dbPath, authclient.WithBunStoreLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("opening credential store: %w", err)
	}

	session := authclient.New(authclient.DefaultConfig(baseURL), store,
		authclient.WithLogger(logger),
	)

	if err := session.RestoreFromPersistence(ctx); err != nil {
		logger.Warn("session restore failed: %v", err)
	}

	closer := func() {
		session.Close()
		store.DB().Close()
	}
	return session, closer, nil
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE:  runLogin,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	cmd.Flags().Bool("remember", false, "Keep the session across restarts")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	session, closer, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closer()

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	remember, _ := cmd.Flags().GetBool("remember")

	user, err := session.Login(cmd.Context(), authclient.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: remember,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.DisplayName())
	return nil
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		RunE:  runRegister,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	session, closer, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closer()

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")

	user, err := session.Register(cmd.Context(), authclient.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", user.DisplayName())
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", session.Status())
			if !session.IsAuthenticated() {
				return nil
			}

			fmt.Fprintf(out, "user: %s\n", session.UserDisplayName())
			fmt.Fprintf(out, "token expires in: %s\n", session.TokenRemainingTime().Round(time.Second))
			if session.IsTokenExpiringSoon() {
				fmt.Fprintln(out, "token is inside the refresh threshold")
			}
			return nil
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer()

			ok, err := session.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "refresh skipped")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token refreshed, expires in %s\n", session.TokenRemainingTime().Round(time.Second))
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch and print the server-side profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, closer, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closer()

			user, err := session.FetchProfile(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.DisplayName(), user.Email)
			if user.Phone != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "phone: %s\n", user.Phone)
			}
			if user.Bio != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "bio: %s\n", user.Bio)
			}
			return nil
		},
	}
}
