package apiclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-sink-client/session"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
)

const pathProfile = "/dashboard/profile"

func (c *Client) GetProfile(ctx context.Context) (*sinkmodel.Member, error) {
	var member sinkmodel.Member
	if err := c.do(ctx, http.MethodGet, pathProfile, nil, &member); err != nil {
		return nil, errors.Wrap(err, "[Client.GetProfile]")
	}
	return &member, nil
}

// UpdateProfile saves the changed fields and refreshes the profile cache from
// the backend's answer. The cached role is kept.
func (c *Client) UpdateProfile(ctx context.Context, update sinkmodel.ProfileUpdate) (*sinkmodel.Member, error) {
	if update.IsEmpty() {
		return nil, errors.New("[Client.UpdateProfile] nothing to update")
	}
	var member sinkmodel.Member
	if err := c.do(ctx, http.MethodPut, pathProfile, update, &member); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile]")
	}

	cached, err := c.session.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile] read profile")
	}
	profile := session.ProfileFromMember(member, cached.Role)
	if profile.MemberID == 0 {
		profile.MemberID = cached.MemberID
	}
	if err := c.session.SaveProfile(ctx, profile); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile] save profile")
	}
	return &member, nil
}
