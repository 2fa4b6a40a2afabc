package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
)

const (
	pathAdminUsers = "/admin/users"
	pathAnalytics  = "/admin/analytics"
	pathElevate    = "/admin/elevate/"
)

func (c *Client) ListUsers(ctx context.Context, req PageRequest) (*sinkmodel.Page[sinkmodel.Member], error) {
	if err := c.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var page sinkmodel.Page[sinkmodel.Member]
	if err := c.do(ctx, http.MethodGet, pathAdminUsers+req.query(false), nil, &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListUsers]")
	}
	return &page, nil
}

func (c *Client) Analytics(ctx context.Context) (*sinkmodel.Analytics, error) {
	if err := c.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var analytics sinkmodel.Analytics
	if err := c.do(ctx, http.MethodGet, pathAnalytics, nil, &analytics); err != nil {
		return nil, errors.Wrap(err, "[Client.Analytics]")
	}
	return &analytics, nil
}

// ElevateUser grants username the admin role.
func (c *Client) ElevateUser(ctx context.Context, username string) (*sinkmodel.Member, error) {
	if err := c.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var member sinkmodel.Member
	if err := c.do(ctx, http.MethodPut, pathElevate+url.PathEscape(username), nil, &member); err != nil {
		return nil, errors.Wrap(err, "[Client.ElevateUser]")
	}
	return &member, nil
}
