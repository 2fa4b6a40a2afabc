package cli

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-sink-client/apiclient"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/spf13/cobra"
)

// NewAdminCommand groups the admin-only calls. They are refused locally unless
// the cached role is Admin.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin dashboard: members and analytics",
	}
	cmd.AddCommand(newAdminUsersCommand(rootOpts))
	cmd.AddCommand(newAdminAnalyticsCommand(rootOpts))
	cmd.AddCommand(newAdminElevateCommand(rootOpts))
	return cmd
}

func newAdminUsersCommand(rootOpts *RootOptions) *cobra.Command {
	var req apiclient.PageRequest
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				page, err := a.api.ListUsers(cmd.Context(), req)
				if err != nil {
					return fail(out, err)
				}
				return out.Success(page, usersText(page))
			})
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 0, "page number, starting at 0")
	cmd.Flags().IntVar(&req.Size, "size", 10, "members per page")
	return cmd
}

func usersText(page *sinkmodel.Page[sinkmodel.Member]) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL\tROLE")
	for _, m := range page.Content {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.MemberID, m.Username, m.FullName(), m.Email, m.UserRole)
	}
	_ = w.Flush()
	fmt.Fprintf(&buf, "page %d of %d (%d members)", page.CurrentPage+1, max(page.TotalPages, 1), page.TotalElements)
	return buf.String()
}

func newAdminAnalyticsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show feed statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				analytics, err := a.api.Analytics(cmd.Context())
				if err != nil {
					return fail(out, err)
				}
				return out.Success(analytics, analyticsText(analytics))
			})
		},
	}
}

func analyticsText(a *sinkmodel.Analytics) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "users: %d  posts: %d  comments: %d\n", a.TotalUsers, a.TotalPosts, a.TotalComments)
	if a.TopPost != nil {
		fmt.Fprintf(&buf, "top post: %q by %s (%d comments)\n", a.TopPost.PostTitle, a.TopPost.Member, a.TopPost.TotalComments)
	}
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tPOSTS")
	for _, m := range a.Members {
		fmt.Fprintf(w, "%s\t%d\n", m.Username, m.TotalPosts)
	}
	_ = w.Flush()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func newAdminElevateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "elevate <username>",
		Short: "Grant a member the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				member, err := a.api.ElevateUser(cmd.Context(), args[0])
				if err != nil {
					return fail(out, err)
				}
				return out.Success(member, fmt.Sprintf("%s is now %s", member.Username, member.UserRole))
			})
		},
	}
}
