package bsky

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skytree/skytree/internal/value"
)

// Bundle exports an actor in one shot: profile plus posts, likes,
// followers and follows, fetched concurrently. The API only serves likes
// for the logged-in actor; for anyone else that collection comes back
// empty rather than failing the whole bundle.
func (c *Client) Bundle(ctx context.Context, actor string, limit int) (value.Value, error) {
	var (
		profile   value.Value
		posts     []value.Value
		likes     []value.Value
		followers []value.Value
		follows   []value.Value
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = c.get(gctx, "app.bsky.actor.getProfile", url.Values{"actor": {actor}})
		return err
	})
	g.Go(func() error {
		var err error
		posts, _, err = c.collect(gctx, pageSpec{
			method:   "app.bsky.feed.getAuthorFeed",
			itemsKey: "feed",
			params:   url.Values{"actor": {actor}},
			limit:    limit,
			pageSize: feedPageSize,
		})
		return err
	})
	g.Go(func() error {
		var err error
		likes, err = c.Likes(gctx, actor, limit)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.log.Warn("likes unavailable for actor",
				zap.String("actor", actor), zap.String("reason", apiErr.Code))
			likes, err = nil, nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = c.Followers(gctx, actor, limit)
		return err
	})
	g.Go(func() error {
		var err error
		follows, err = c.Follows(gctx, actor, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return value.Value{}, err
	}
	return envelope("profile_bundle",
		value.Member{Key: "actor", Val: value.StrValue(actor)},
		value.Member{Key: "profile", Val: profile},
		value.Member{Key: "posts", Val: value.SequenceValue(posts...)},
		value.Member{Key: "likes", Val: value.SequenceValue(likes...)},
		value.Member{Key: "followers", Val: value.SequenceValue(followers...)},
		value.Member{Key: "follows", Val: value.SequenceValue(follows...)},
	), nil
}
