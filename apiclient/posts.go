package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
)

const (
	pathPosts    = "/posts"
	pathComments = "/posts/comments"

	DefaultPageSize  = 5
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
)

// PageRequest selects a page of a listing. Zero values select the defaults.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	SortOrder string
}

func (p PageRequest) query(sorted bool) string {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if sorted {
		by, order := p.SortBy, p.SortOrder
		if by == "" {
			by = DefaultSortBy
		}
		if order == "" {
			order = DefaultSortOrder
		}
		q.Set("sort", by+","+order)
	}
	return "?" + q.Encode()
}

func (c *Client) ListPosts(ctx context.Context, req PageRequest) (*sinkmodel.Page[sinkmodel.Post], error) {
	var page sinkmodel.Page[sinkmodel.Post]
	if err := c.do(ctx, http.MethodGet, pathPosts+req.query(true), nil, &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListPosts]")
	}
	return &page, nil
}

func (c *Client) CreatePost(ctx context.Context, post sinkmodel.NewPost) (*sinkmodel.Post, error) {
	var created sinkmodel.Post
	if err := c.do(ctx, http.MethodPost, pathPosts, post, &created); err != nil {
		return nil, errors.Wrap(err, "[Client.CreatePost]")
	}
	return &created, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return errors.Wrap(c.do(ctx, http.MethodDelete, pathPosts+"/"+url.PathEscape(postID), nil, nil), "[Client.DeletePost]")
}

func (c *Client) AddComment(ctx context.Context, postID string, comment sinkmodel.NewComment) (*sinkmodel.Comment, error) {
	var created sinkmodel.Comment
	path := pathPosts + "/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, comment, &created); err != nil {
		return nil, errors.Wrap(err, "[Client.AddComment]")
	}
	return &created, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return errors.Wrap(c.do(ctx, http.MethodDelete, pathComments+"/"+url.PathEscape(commentID), nil, nil), "[Client.DeleteComment]")
}
