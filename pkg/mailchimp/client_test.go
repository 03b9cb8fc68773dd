package mailchimp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return Settings{
		FromName:    "Urban Select",
		ReplyTo:     "mkt@urban.imb.br",
		SubjectLine: "Seu novo lar está aqui!",
	}
}

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "us14", "list-1", testSettings(),
		WithBaseURL(srv.URL),
		WithRateLimit(1000, 1000),
		WithSegmentSettleDelay(0),
	)
}

func TestSubscriberHash(t *testing.T) {
	t.Parallel()

	// MD5 of the lowercased, trimmed address.
	assert.Equal(t, "f3ada405ce890b6f8204094deb12d8a8", SubscriberHash("Foo@Bar.com"))
	assert.Equal(t, SubscriberHash("a@b.com"), SubscriberHash("  A@B.COM  "))
}

func TestUpsertMemberUpdatesExisting(t *testing.T) {
	t.Parallel()

	hash := SubscriberHash("lead@example.com")
	var patched bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "anystring", user)
		assert.Equal(t, "test-key", pass)

		switch {
		case r.Method == http.MethodGet:
			assert.Equal(t, "/lists/list-1/members/"+hash, r.URL.Path)
			fmt.Fprint(w, `{"id":"`+hash+`"}`)
		case r.Method == http.MethodPatch:
			patched = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body, "merge_fields")
			assert.NotContains(t, body, "status")
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	err := client.UpsertMember(context.Background(), Member{
		Email:       "lead@example.com",
		MergeFields: map[string]string{"FNAME": "Ana"},
	})
	require.NoError(t, err)
	assert.True(t, patched)
}

func TestUpsertMemberCreatesNew(t *testing.T) {
	t.Parallel()

	var created bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"title":"Resource Not Found","status":404}`)
		case http.MethodPost:
			created = true
			assert.Equal(t, "/lists/list-1/members", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "new@example.com", body["email_address"])
			assert.Equal(t, "subscribed", body["status"])
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	err := client.UpsertMember(context.Background(), Member{Email: "new@example.com"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpsertMemberReactivatesArchived(t *testing.T) {
	t.Parallel()

	var reactivated bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"title":"Resource Not Found","status":404}`)
		case http.MethodPost:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"title":"Member Exists","status":400,"detail":"already a list member"}`)
		case http.MethodPatch:
			reactivated = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "subscribed", body["status"])
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	err := client.UpsertMember(context.Background(), Member{Email: "archived@example.com"})
	require.NoError(t, err)
	assert.True(t, reactivated)
}

func TestUpsertMemberSurfacesAPIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"title":"Forbidden","status":403,"detail":"bad key"}`)
	}))

	err := client.UpsertMember(context.Background(), Member{Email: "x@example.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Forbidden", apiErr.Title)
}

func TestTagMember(t *testing.T) {
	t.Parallel()

	hash := SubscriberHash("lead@example.com")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lists/list-1/members/"+hash+"/tags", r.URL.Path)

		var body struct {
			Tags []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"tags"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Tags, 1)
		assert.Equal(t, "CAMP_20260830_120000", body.Tags[0].Name)
		assert.Equal(t, "active", body.Tags[0].Status)
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.TagMember(context.Background(), "lead@example.com", "CAMP_20260830_120000")
	require.NoError(t, err)
}

func TestSegmentIDByTag(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lists/list-1/segments", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("count"))
		fmt.Fprint(w, `{"segments":[
			{"id":11,"name":"CAMP_X","type":"saved"},
			{"id":22,"name":"CAMP_X","type":"static","member_count":9},
			{"id":33,"name":"CAMP_Y","type":"static"}
		]}`)
	}))

	id, err := client.SegmentIDByTag(context.Background(), "CAMP_X")
	require.NoError(t, err)
	assert.Equal(t, 22, id)

	_, err = client.SegmentIDByTag(context.Background(), "CAMP_MISSING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no static segment")
}

func TestCampaignLifecycle(t *testing.T) {
	t.Parallel()

	var gotContent, sent bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/campaigns":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "regular", body["type"])
			recipients := body["recipients"].(map[string]any)
			assert.Equal(t, "list-1", recipients["list_id"])
			opts := recipients["segment_opts"].(map[string]any)
			assert.EqualValues(t, 22, opts["saved_segment_id"])
			settings := body["settings"].(map[string]any)
			assert.Equal(t, "Seu novo lar está aqui!", settings["subject_line"])
			fmt.Fprint(w, `{"id":"camp-1"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/campaigns/camp-1/content":
			gotContent = true
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "<html>hi</html>", body["html"])
			fmt.Fprint(w, `{}`)
		case r.Method == http.MethodPost && r.URL.Path == "/campaigns/camp-1/actions/send":
			sent = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	ctx := context.Background()
	id, err := client.CreateCampaign(ctx, 22, "Imóveis Semelhantes - 30/08/2026 12:00")
	require.NoError(t, err)
	assert.Equal(t, "camp-1", id)

	require.NoError(t, client.SetCampaignHTML(ctx, id, "<html>hi</html>"))
	require.NoError(t, client.SendCampaign(ctx, id))
	assert.True(t, gotContent)
	assert.True(t, sent)
}
