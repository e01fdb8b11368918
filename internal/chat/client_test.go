package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newFakeService(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestSearchSpacesMatchesAcrossPages(t *testing.T) {
	var requests []url.Values
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/spaces", r.URL.Path)
		requests = append(requests, r.URL.Query())

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(t, w, map[string]any{
				"spaces": []map[string]any{
					{"name": "spaces/AAA", "displayName": "Engineering"},
					{"name": "spaces/BBB", "displayName": "Random"},
				},
				"nextPageToken": "page-2",
			})
		case "page-2":
			writeJSON(t, w, map[string]any{
				"spaces": []map[string]any{
					{"name": "spaces/CCC", "displayName": "engineering weekly"},
					{"name": "spaces/DDD", "displayName": ""},
				},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	spaces, err := client.SearchSpaces(context.Background(), "Engineering")
	require.NoError(t, err)

	require.Len(t, spaces, 2, "matches on late pages must not be missed")
	assert.Equal(t, Space{Name: "spaces/AAA", DisplayName: "Engineering"}, spaces[0])
	assert.Equal(t, Space{Name: "spaces/CCC", DisplayName: "engineering weekly"}, spaces[1])

	require.Len(t, requests, 2)
	for _, q := range requests {
		assert.Equal(t, "1000", q.Get("pageSize"))
	}
}

func TestSearchSpacesEmptyQueryReturnsAll(t *testing.T) {
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"spaces": []map[string]any{
				{"name": "spaces/AAA", "displayName": "Engineering"},
				{"name": "spaces/BBB", "displayName": ""},
			},
		})
	})

	spaces, err := client.SearchSpaces(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, spaces, 2)
}

func TestSearchSpacesNoMatch(t *testing.T) {
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"spaces": []map[string]any{
				{"name": "spaces/AAA", "displayName": "Engineering"},
			},
		})
	})

	spaces, err := client.SearchSpaces(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, spaces)
}

func TestListMessagesCapsAtFiveHundred(t *testing.T) {
	var pageSizes []string
	served := 0
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/spaces/AAA/messages", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "createTime DESC", q.Get("orderBy"))
		assert.False(t, q.Has("filter"))
		pageSizes = append(pageSizes, q.Get("pageSize"))

		requested, err := strconv.Atoi(q.Get("pageSize"))
		require.NoError(t, err)
		count := requested
		if count > 200 {
			count = 200
		}

		msgs := make([]map[string]any, count)
		for i := range msgs {
			msgs[i] = map[string]any{
				"sender":     map[string]any{"displayName": "Ada"},
				"text":       fmt.Sprintf("message %d", served+i),
				"createTime": "2025-07-01T10:00:00Z",
			}
		}
		served += count

		// Always offer another page; the client must stop at its cap.
		writeJSON(t, w, map[string]any{
			"messages":      msgs,
			"nextPageToken": "more",
		})
	})

	msgs, err := client.ListMessages(context.Background(), "spaces/AAA", "")
	require.NoError(t, err)

	require.Len(t, msgs, 500)
	assert.Equal(t, "message 0", msgs[0].Text)
	assert.Equal(t, "message 499", msgs[499].Text)
	assert.Equal(t, []string{"500", "300", "100"}, pageSizes)
}

func TestListMessagesFilterAndMapping(t *testing.T) {
	const filter = `createTime > "2025-07-01T00:00:00Z"`

	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, filter, r.URL.Query().Get("filter"))
		writeJSON(t, w, map[string]any{
			"messages": []map[string]any{
				{"sender": map[string]any{"displayName": "Ada Lovelace"}, "text": "hello", "createTime": "2025-07-02T10:00:00Z"},
				{"sender": map[string]any{"name": "users/123"}, "text": "", "createTime": "2025-07-02T09:00:00Z"},
				{"text": "no sender", "createTime": "2025-07-02T08:00:00Z"},
			},
		})
	})

	msgs, err := client.ListMessages(context.Background(), "spaces/AAA", filter)
	require.NoError(t, err)

	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Author: "Ada Lovelace", Text: "hello", CreateTime: "2025-07-02T10:00:00Z"}, msgs[0])
	assert.Equal(t, "Unknown", msgs[1].Author, "sender without display name")
	assert.Empty(t, msgs[1].Text)
	assert.Equal(t, "Unknown", msgs[2].Author, "message without sender")
}

func TestListMessagesStopsAtLastPage(t *testing.T) {
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(t, w, map[string]any{
				"messages": []map[string]any{
					{"text": "a", "createTime": "2025-07-01T10:00:02Z"},
					{"text": "b", "createTime": "2025-07-01T10:00:01Z"},
					{"text": "c", "createTime": "2025-07-01T10:00:00Z"},
				},
				"nextPageToken": "page-2",
			})
		case "page-2":
			writeJSON(t, w, map[string]any{
				"messages": []map[string]any{
					{"text": "d", "createTime": "2025-07-01T09:00:01Z"},
					{"text": "e", "createTime": "2025-07-01T09:00:00Z"},
				},
			})
		}
	})

	msgs, err := client.ListMessages(context.Background(), "spaces/AAA", "")
	require.NoError(t, err)

	require.Len(t, msgs, 5)
	assert.Equal(t, "a", msgs[0].Text)
	assert.Equal(t, "e", msgs[4].Text)
}

func TestListMessagesAPIError(t *testing.T) {
	client := newFakeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied"}}`))
	})

	_, err := client.ListMessages(context.Background(), "spaces/AAA", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list messages")
}
