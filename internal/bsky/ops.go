package bsky

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/skytree/skytree/internal/value"
)

// Page sizes mirror what the AppView hands out by default; maxPageSize is
// its hard cap per request.
const (
	feedPageSize = 50
	listPageSize = 30
	maxPageSize  = 100
)

// envelope wraps fetched data with a type tag and download timestamp, the
// shape every download operation hands to the materializer.
func envelope(kind string, members ...value.Member) value.Value {
	all := make([]value.Member, 0, len(members)+2)
	all = append(all, value.Member{Key: "type", Val: value.StrValue(kind)})
	all = append(all, members...)
	all = append(all, value.Member{
		Key: "downloaded_at",
		Val: value.StrValue(time.Now().Format(time.RFC3339)),
	})
	return value.MappingValue(all...)
}

func mappingAt(v value.Value, key string) value.Value {
	m, ok := v.Get(key)
	if !ok || m.Kind != value.Mapping {
		return value.MappingValue()
	}
	return m
}

func intAt(v value.Value, key string) int64 {
	m, ok := v.Get(key)
	if ok && m.Kind == value.Int {
		return m.I
	}
	return 0
}

// pageSpec drives one cursor-paginated collection endpoint.
type pageSpec struct {
	method   string
	itemsKey string
	params   url.Values
	// limit caps the total number of items; 0 fetches everything.
	limit int
	// pageSize is the per-request batch when no limit is set.
	pageSize int
}

// collect walks cursor pages until the collection is exhausted or limit
// items are gathered. It returns the items and the last page fetched, which
// callers mine for side data such as list metadata.
func (c *Client) collect(ctx context.Context, spec pageSpec) ([]value.Value, value.Value, error) {
	var (
		items    []value.Value
		lastPage value.Value
		cursor   string
	)
	for {
		batch := spec.pageSize
		if spec.limit > 0 {
			remaining := spec.limit - len(items)
			if remaining <= 0 {
				break
			}
			batch = remaining
			if batch > maxPageSize {
				batch = maxPageSize
			}
		}
		params := url.Values{}
		for k, vs := range spec.params {
			params[k] = vs
		}
		params.Set("limit", strconv.Itoa(batch))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		page, err := c.get(ctx, spec.method, params)
		if err != nil {
			return nil, value.Value{}, err
		}
		lastPage = page
		coll, ok := page.Get(spec.itemsKey)
		if !ok || coll.Kind != value.Sequence || len(coll.Items) == 0 {
			break
		}
		items = append(items, coll.Items...)
		c.log.Debug("page fetched",
			zap.String("method", spec.method),
			zap.Int("batch", len(coll.Items)),
			zap.Int("total", len(items)))
		cursor = page.GetStr("cursor")
		if cursor == "" {
			break
		}
	}
	if spec.limit > 0 && len(items) > spec.limit {
		items = items[:spec.limit]
	}
	return items, lastPage, nil
}

// Profile fetches one actor's profile view.
func (c *Client) Profile(ctx context.Context, actor string) (value.Value, error) {
	data, err := c.get(ctx, "app.bsky.actor.getProfile", url.Values{"actor": {actor}})
	if err != nil {
		return value.Value{}, err
	}
	return envelope("profile",
		value.Member{Key: "actor", Val: value.StrValue(actor)},
		value.Member{Key: "data", Val: data},
	), nil
}

// AuthorFeed fetches an actor's posts. filterType narrows the feed the way
// the API understands it (posts_no_replies, posts_with_media, ...); empty
// means posts_with_replies.
func (c *Client) AuthorFeed(ctx context.Context, actor string, limit int, filterType string) (value.Value, error) {
	if filterType == "" {
		filterType = "posts_with_replies"
	}
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.feed.getAuthorFeed",
		itemsKey: "feed",
		params:   url.Values{"actor": {actor}, "filter": {filterType}},
		limit:    limit,
		pageSize: feedPageSize,
	})
	if err != nil {
		return value.Value{}, err
	}
	return envelope("author_feed",
		value.Member{Key: "actor", Val: value.StrValue(actor)},
		value.Member{Key: "filter", Val: value.StrValue(filterType)},
		value.Member{Key: "total_posts", Val: value.IntValue(int64(len(items)))},
		value.Member{Key: "data", Val: value.SequenceValue(items...)},
	), nil
}

// CustomFeed fetches a feed generator's output together with a summary of
// the generator itself.
func (c *Client) CustomFeed(ctx context.Context, feedURI string, limit int) (value.Value, error) {
	generator, err := c.get(ctx, "app.bsky.feed.getFeedGenerator", url.Values{"feed": {feedURI}})
	if err != nil {
		return value.Value{}, err
	}
	view := mappingAt(generator, "view")
	feedInfo := value.MappingValue(
		value.Member{Key: "display_name", Val: value.StrValue(view.GetStr("displayName"))},
		value.Member{Key: "description", Val: value.StrValue(view.GetStr("description"))},
		value.Member{Key: "creator", Val: value.StrValue(mappingAt(view, "creator").GetStr("handle"))},
		value.Member{Key: "like_count", Val: value.IntValue(intAt(view, "likeCount"))},
		value.Member{Key: "avatar", Val: value.StrValue(view.GetStr("avatar"))},
	)

	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.feed.getFeed",
		itemsKey: "feed",
		params:   url.Values{"feed": {feedURI}},
		limit:    limit,
		pageSize: feedPageSize,
	})
	if err != nil {
		return value.Value{}, err
	}
	return envelope("custom_feed",
		value.Member{Key: "feed_uri", Val: value.StrValue(feedURI)},
		value.Member{Key: "feed_info", Val: feedInfo},
		value.Member{Key: "total_posts", Val: value.IntValue(int64(len(items)))},
		value.Member{Key: "data", Val: value.SequenceValue(items...)},
	), nil
}

// Timeline fetches the logged-in user's home timeline.
func (c *Client) Timeline(ctx context.Context, limit int) (value.Value, error) {
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.feed.getTimeline",
		itemsKey: "feed",
		params:   url.Values{},
		limit:    limit,
		pageSize: feedPageSize,
	})
	if err != nil {
		return value.Value{}, err
	}
	return envelope("timeline",
		value.Member{Key: "total_posts", Val: value.IntValue(int64(len(items)))},
		value.Member{Key: "data", Val: value.SequenceValue(items...)},
	), nil
}

// Post fetches a single post with no surrounding thread.
func (c *Client) Post(ctx context.Context, postURI string) (value.Value, error) {
	resp, err := c.get(ctx, "app.bsky.feed.getPostThread", url.Values{
		"uri":          {postURI},
		"depth":        {"0"},
		"parentHeight": {"0"},
	})
	if err != nil {
		return value.Value{}, err
	}
	thread, ok := resp.Get("thread")
	if !ok {
		return value.Value{}, fmt.Errorf("getPostThread response has no thread")
	}
	return envelope("post",
		value.Member{Key: "post_uri", Val: value.StrValue(postURI)},
		value.Member{Key: "data", Val: thread},
	), nil
}

// Thread fetches a post's full conversation: depth levels of replies below
// it and parentHeight ancestors above it.
func (c *Client) Thread(ctx context.Context, postURI string, depth, parentHeight int) (value.Value, error) {
	resp, err := c.get(ctx, "app.bsky.feed.getPostThread", url.Values{
		"uri":          {postURI},
		"depth":        {strconv.Itoa(depth)},
		"parentHeight": {strconv.Itoa(parentHeight)},
	})
	if err != nil {
		return value.Value{}, err
	}
	thread, ok := resp.Get("thread")
	if !ok {
		return value.Value{}, fmt.Errorf("getPostThread response has no thread")
	}
	return envelope("thread",
		value.Member{Key: "post_uri", Val: value.StrValue(postURI)},
		value.Member{Key: "depth", Val: value.IntValue(int64(depth))},
		value.Member{Key: "parent_height", Val: value.IntValue(int64(parentHeight))},
		value.Member{Key: "data", Val: thread},
	), nil
}

// UserList fetches a list's members together with the list's own metadata.
func (c *Client) UserList(ctx context.Context, listURI string, limit int) (value.Value, error) {
	items, lastPage, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.graph.getList",
		itemsKey: "items",
		params:   url.Values{"list": {listURI}},
		limit:    limit,
		pageSize: listPageSize,
	})
	if err != nil {
		return value.Value{}, err
	}
	list := mappingAt(lastPage, "list")
	listInfo := value.MappingValue(
		value.Member{Key: "name", Val: value.StrValue(list.GetStr("name"))},
		value.Member{Key: "description", Val: value.StrValue(list.GetStr("description"))},
		value.Member{Key: "purpose", Val: value.StrValue(list.GetStr("purpose"))},
		value.Member{Key: "creator", Val: value.StrValue(mappingAt(list, "creator").GetStr("handle"))},
		value.Member{Key: "member_count", Val: value.IntValue(intAt(list, "listItemCount"))},
		value.Member{Key: "created_at", Val: value.StrValue(list.GetStr("createdAt"))},
	)
	return envelope("user_list",
		value.Member{Key: "list_uri", Val: value.StrValue(listURI)},
		value.Member{Key: "list_info", Val: listInfo},
		value.Member{Key: "total_members", Val: value.IntValue(int64(len(items)))},
		value.Member{Key: "data", Val: value.SequenceValue(items...)},
	), nil
}

// UserLists fetches every list an actor has created.
func (c *Client) UserLists(ctx context.Context, actor string, limit int) (value.Value, error) {
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.graph.getLists",
		itemsKey: "lists",
		params:   url.Values{"actor": {actor}},
		limit:    limit,
		pageSize: listPageSize,
	})
	if err != nil {
		return value.Value{}, err
	}
	return envelope("user_lists",
		value.Member{Key: "actor", Val: value.StrValue(actor)},
		value.Member{Key: "total_lists", Val: value.IntValue(int64(len(items)))},
		value.Member{Key: "data", Val: value.SequenceValue(items...)},
	), nil
}

// Likes fetches the posts an actor has liked. The API only serves this for
// the logged-in actor themselves.
func (c *Client) Likes(ctx context.Context, actor string, limit int) ([]value.Value, error) {
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.feed.getActorLikes",
		itemsKey: "feed",
		params:   url.Values{"actor": {actor}},
		limit:    limit,
		pageSize: feedPageSize,
	})
	return items, err
}

// Followers fetches the actors following actor.
func (c *Client) Followers(ctx context.Context, actor string, limit int) ([]value.Value, error) {
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.graph.getFollowers",
		itemsKey: "followers",
		params:   url.Values{"actor": {actor}},
		limit:    limit,
		pageSize: listPageSize,
	})
	return items, err
}

// Follows fetches the actors that actor follows.
func (c *Client) Follows(ctx context.Context, actor string, limit int) ([]value.Value, error) {
	items, _, err := c.collect(ctx, pageSpec{
		method:   "app.bsky.graph.getFollows",
		itemsKey: "follows",
		params:   url.Values{"actor": {actor}},
		limit:    limit,
		pageSize: listPageSize,
	})
	return items, err
}

// PostRef identifies a record created on the PDS.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// CreatePost publishes a text post under the logged-in identity.
func (c *Client) CreatePost(ctx context.Context, text string, langs []string) (*PostRef, error) {
	if c.session == nil {
		return nil, fmt.Errorf("create post: not logged in")
	}
	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if len(langs) > 0 {
		record["langs"] = langs
	}
	in := map[string]any{
		"repo":       c.session.Did,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	var out PostRef
	if err := c.post(ctx, "com.atproto.repo.createRecord", c.session.AccessJwt, in, &out); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &out, nil
}
