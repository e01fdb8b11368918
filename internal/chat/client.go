package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	chat "google.golang.org/api/chat/v1"
	"google.golang.org/api/option"
)

const (
	// spacePageSize is the page size used while walking the full space
	// list.
	spacePageSize = 1000

	// messagePageSize is the Chat API maximum page size for messages.
	messagePageSize = 1000

	// maxMessages caps how many messages one listing returns.
	maxMessages = 500
)

// Client wraps the Google Chat service.
type Client struct {
	svc *chat.Service
}

// NewClient creates a Chat client over the given HTTP client, which must
// already carry the user's authorization. Extra options follow the client
// option, so tests can point the service at a fake endpoint.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	svc, err := chat.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chat service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// SearchSpaces returns the spaces whose display name contains query,
// comparing case-insensitively. It walks the full space list, so matches
// on late pages are never missed. An empty query returns every space.
func (c *Client) SearchSpaces(ctx context.Context, query string) ([]Space, error) {
	needle := strings.ToLower(query)

	var matches []Space
	pageToken := ""
	for {
		req := c.svc.Spaces.List().PageSize(spacePageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list spaces: %w", err)
		}

		for _, s := range res.Spaces {
			if !strings.Contains(strings.ToLower(s.DisplayName), needle) {
				continue
			}
			matches = append(matches, Space{Name: s.Name, DisplayName: s.DisplayName})
		}

		if res.NextPageToken == "" {
			return matches, nil
		}
		pageToken = res.NextPageToken
	}
}

// ListMessages returns up to 500 messages from the space, newest first.
// filter optionally narrows the listing using the Chat API filter syntax
// (createTime ranges, thread.name).
func (c *Client) ListMessages(ctx context.Context, space, filter string) ([]Message, error) {
	var messages []Message
	pageToken := ""

	for {
		remaining := int64(maxMessages - len(messages))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > messagePageSize {
			pageSize = messagePageSize
		}

		req := c.svc.Spaces.Messages.List(space).
			PageSize(pageSize).
			OrderBy("createTime DESC")
		if filter != "" {
			req = req.Filter(filter)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages in %s: %w", space, err)
		}

		for _, m := range res.Messages {
			messages = append(messages, toMessage(m))
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	// Trim in case a page overshot the cap
	if len(messages) > maxMessages {
		messages = messages[:maxMessages]
	}
	return messages, nil
}

// toMessage converts a Chat API message to our Message type.
func toMessage(m *chat.Message) Message {
	author := "Unknown"
	if m.Sender != nil && m.Sender.DisplayName != "" {
		author = m.Sender.DisplayName
	}
	return Message{
		Author:     author,
		Text:       m.Text,
		CreateTime: m.CreateTime,
	}
}
