package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-sink-client/credentials"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/spf13/cobra"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Sign in and store the session",
		Long: `Sign in with a username or email address. The password is read from
--password or, when omitted, from the first line of standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if password == "" {
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				password = strings.TrimRight(line, "\r\n")
				if password == "" {
					return usage(out, "a password is required (--password or stdin)")
				}
			}
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				result, err := a.session.Login(cmd.Context(), args[0], password)
				if err != nil {
					return fail(out, err)
				}
				return out.Success(result.Profile, fmt.Sprintf("Logged in as %s (%s)", displayName(result.Profile), result.Role()))
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				if err := a.session.Logout(cmd.Context(), nil); err != nil {
					return fail(out, err)
				}
				return out.Success(map[string]bool{"loggedOut": true}, "Logged out")
			})
		},
	}
}

// NewRefreshCommand exchanges the refresh token once, as a keeper tick would.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				accessToken, err := a.session.Refresh(cmd.Context())
				if err != nil {
					return fail(out, err)
				}
				expiry := tokenExpiry(accessToken)
				return out.Success(map[string]string{"expiresAt": expiry}, "Session refreshed, access token valid until "+expiry)
			})
		},
	}
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var form sinkmodel.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			form.Username = args[0]
			if form.RepeatPassword == "" {
				form.RepeatPassword = form.Password
			}
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				result := a.session.Register(cmd.Context(), form)
				if !result.Success {
					_ = out.Error(codeValidation, strings.Join(result.Errors, "\n"), result)
					return NewExitError(ExitFailure, result.Message)
				}
				return out.Success(result, result.Message)
			})
		},
	}
	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	cmd.Flags().StringVar(&form.RepeatPassword, "repeat-password", "", "password confirmation (defaults to --password)")
	return cmd
}

func NewCheckUsernameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-username <username>",
		Short: "Check whether a username is still free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				available, err := a.session.CheckUsernameAvailability(cmd.Context(), args[0])
				if err != nil {
					return fail(out, err)
				}
				text := fmt.Sprintf("%s is available", args[0])
				if !available {
					text = fmt.Sprintf("%s is taken", args[0])
				}
				return out.Success(sinkmodel.UsernameAvailability{Available: available}, text)
			})
		},
	}
}

// NewWhoAmICommand prints the cached profile without calling the backend.
func NewWhoAmICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				s, err := a.store.Session(cmd.Context())
				if err != nil {
					return fail(out, err)
				}
				if s.IsZero() {
					_ = out.Error(codeSession, "Not logged in", nil)
					return NewExitError(ExitLoginNeeded, "not logged in")
				}
				profile, err := a.session.Profile(cmd.Context())
				if err != nil {
					return fail(out, err)
				}
				return out.Success(profile, fmt.Sprintf("%s <%s> (%s), access token valid until %s",
					displayName(profile), profile.Email, profile.Role, tokenExpiry(s.AccessToken)))
			})
		},
	}
}

func displayName(p credentials.Profile) string {
	if name := p.FullName(); name != "" {
		return name
	}
	return p.Email
}

func tokenExpiry(accessToken string) string {
	claims, err := token.Inspect(accessToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return "unknown"
	}
	return claims.ExpiresAt.Local().Format("15:04:05")
}
