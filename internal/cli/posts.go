package cli

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-sink-client/apiclient"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/spf13/cobra"
)

func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Read and write the feed",
	}
	cmd.AddCommand(newPostsListCommand(rootOpts))
	cmd.AddCommand(newPostsCreateCommand(rootOpts))
	cmd.AddCommand(newPostsDeleteCommand(rootOpts))
	return cmd
}

func newPostsListCommand(rootOpts *RootOptions) *cobra.Command {
	var req apiclient.PageRequest
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				// the backend cannot sort by comment count; that is done on the page
				byComments := strings.EqualFold(req.SortBy, "comments")
				backendReq := req
				if byComments {
					backendReq.SortBy = ""
				}
				page, err := a.api.ListPosts(cmd.Context(), backendReq)
				if err != nil {
					return fail(out, err)
				}
				page.Content = apiclient.FilterPosts(page.Content, filter)
				if byComments {
					page.Content = apiclient.SortPosts(page.Content, req.SortBy, req.SortOrder)
				}
				return out.Success(page, postsText(page))
			})
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 0, "page number, starting at 0")
	cmd.Flags().IntVar(&req.Size, "size", apiclient.DefaultPageSize, "posts per page")
	cmd.Flags().StringVar(&req.SortBy, "sort", apiclient.DefaultSortBy, "sort field (createdAt|title|comments)")
	cmd.Flags().StringVar(&req.SortOrder, "order", apiclient.DefaultSortOrder, "sort order (asc|desc)")
	cmd.Flags().StringVar(&filter, "filter", "", "only show posts whose title, content or author contains this text")
	return cmd
}

func postsText(page *sinkmodel.Page[sinkmodel.Post]) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCOMMENTS\tCREATED")
	for _, p := range page.Content {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Title, p.Author(), len(p.Comments), p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
	fmt.Fprintf(&buf, "page %d of %d (%d posts)", page.CurrentPage+1, max(page.TotalPages, 1), page.TotalElements)
	return buf.String()
}

func newPostsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				post, err := a.api.CreatePost(cmd.Context(), sinkmodel.NewPost{Title: args[0], Content: content})
				if err != nil {
					return fail(out, err)
				}
				return out.Success(post, "Created post "+post.ID)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "post body")
	return cmd
}

func newPostsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				if err := a.api.DeletePost(cmd.Context(), args[0]); err != nil {
					return fail(out, err)
				}
				return out.Success(map[string]string{"deleted": args[0]}, "Deleted post "+args[0])
			})
		},
	}
}

func NewCommentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment on posts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				comment, err := a.api.AddComment(cmd.Context(), args[0], sinkmodel.NewComment{Content: args[1]})
				if err != nil {
					return fail(out, err)
				}
				return out.Success(comment, "Added comment "+comment.ID)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withApp(cmd.Context(), out, func(a *app) error {
				if err := a.api.DeleteComment(cmd.Context(), args[0]); err != nil {
					return fail(out, err)
				}
				return out.Success(map[string]string{"deleted": args[0]}, "Deleted comment "+args[0])
			})
		},
	})
	return cmd
}
