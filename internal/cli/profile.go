package cli

import (
	"fmt"

	"github.com/jrsteele09/go-sink-client/internal/utils"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/spf13/cobra"
)

func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(newProfileGetCommand(rootOpts))
	cmd.AddCommand(newProfileUpdateCommand(rootOpts))
	return cmd
}

func newProfileGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Fetch your profile from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				member, err := a.api.GetProfile(cmd.Context())
				if err != nil {
					return fail(out, err)
				}
				return out.Success(member, memberText(member))
			})
		},
	}
}

func newProfileUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var firstName, lastName, email, phone string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			update := sinkmodel.ProfileUpdate{
				FirstName:   changed(cmd, "first-name", firstName),
				LastName:    changed(cmd, "last-name", lastName),
				Email:       changed(cmd, "email", email),
				PhoneNumber: changed(cmd, "phone", phone),
			}
			if update.IsEmpty() {
				return usage(out, "nothing to update: pass at least one of --first-name, --last-name, --email, --phone")
			}
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				member, err := a.api.UpdateProfile(cmd.Context(), update)
				if err != nil {
					return fail(out, err)
				}
				return out.Success(member, "Profile updated\n"+memberText(member))
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	return cmd
}

// changed returns a pointer to value only when the flag was given, so an
// explicit empty value still clears the field.
func changed(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return utils.Ptr(value)
}

func memberText(m *sinkmodel.Member) string {
	return fmt.Sprintf("%s (%s)\n  email: %s\n  phone: %s\n  role:  %s",
		m.FullName(), m.Username, m.Email, m.PhoneNumber, m.UserRole)
}
