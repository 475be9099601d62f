package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
)

type recorded struct {
	queries []string
	favs    int
}

func newTestSession(t *testing.T) (*Session, *bytes.Buffer, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/talents":
			rec.queries = append(rec.queries, r.URL.RawQuery)
			if r.URL.Query().Get("use_remote") == "true" {
				_, _ = w.Write([]byte(`{"talents":[],"total_pages":0,"current_page":1,"total_count":0,"source":"remote","authenticated":false,"show_cta":true}`))
				return
			}
			_, _ = w.Write([]byte(`{"talents":[{"id":"jane_1","name":"Jane","is_favorite":true},{"id":"bob_2","name":"Bob"}],"total_pages":1,"current_page":1,"total_count":2,"source":"local"}`))
		case "/favorite":
			rec.favs++
			_, _ = w.Write([]byte(`{"is_favorite":false}`))
		case "/device_id":
			_, _ = w.Write([]byte(`{"device_id":"dev-9"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"talent not found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	s := NewSession(NewAPI(httpclient.New(nil), srv.URL), out, "catalog/catalog.json", "catalog/images")
	return s, out, rec
}

func TestSession_List(t *testing.T) {
	s, out, rec := newTestSession(t)

	require.NoError(t, s.Exec(context.Background(), "list"))
	assert.Contains(t, out.String(), "* jane_1")
	assert.Contains(t, out.String(), "  bob_2")
	assert.Contains(t, out.String(), "page 1/1, 2 talents (local)")
	require.Len(t, rec.queries, 1)
	assert.Contains(t, rec.queries[0], "catalog_path=catalog%2Fcatalog.json")

	assert.Error(t, s.Exec(context.Background(), "list zero"))
	assert.Error(t, s.Exec(context.Background(), "list 0"))
	assert.Len(t, rec.queries, 1)
}

func TestSession_FilterResetsPage(t *testing.T) {
	s, out, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, "list 3"))
	require.NoError(t, s.Exec(ctx, "filter name=jane gender=female"))
	require.NoError(t, s.Exec(ctx, "list"))
	assert.Contains(t, rec.queries[1], "page=1")
	assert.Contains(t, rec.queries[1], "name=jane")
	assert.Contains(t, rec.queries[1], "gender=female")

	out.Reset()
	require.NoError(t, s.Exec(ctx, "filter"))
	assert.Equal(t, "gender=female\nname=jane\n", out.String())

	require.NoError(t, s.Exec(ctx, "filter gender="))
	require.NoError(t, s.Exec(ctx, "list"))
	assert.NotContains(t, rec.queries[2], "gender")

	require.NoError(t, s.Exec(ctx, "filter clear"))
	require.NoError(t, s.Exec(ctx, "list"))
	assert.NotContains(t, rec.queries[3], "name=")

	assert.Error(t, s.Exec(ctx, "filter colour=red"))
	assert.Error(t, s.Exec(ctx, "filter name"))
}

func TestSession_RemoteShowsCTA(t *testing.T) {
	s, out, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, "remote on"))
	require.NoError(t, s.Exec(ctx, "list"))
	assert.Contains(t, out.String(), "Patreon membership")
	assert.Error(t, s.Exec(ctx, "remote maybe"))
}

func TestSession_GetFavDevice(t *testing.T) {
	s, out, rec := newTestSession(t)
	ctx := context.Background()

	err := s.Exec(ctx, "get ghost_1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, s.Exec(ctx, "fav jane_1"))
	assert.Equal(t, 1, rec.favs)
	assert.Contains(t, out.String(), "jane_1 favorite: false")

	require.NoError(t, s.Exec(ctx, "device"))
	assert.Contains(t, out.String(), "dev-9")

	assert.Error(t, s.Exec(ctx, "get"))
	assert.Error(t, s.Exec(ctx, "fav"))
}

func TestSession_Run(t *testing.T) {
	s, out, _ := newTestSession(t)

	s.Run(context.Background(), strings.NewReader("help\nbogus\nlist 0\nexit\nlist\n"))
	got := out.String()
	assert.Contains(t, got, "Available commands:")
	assert.Contains(t, got, "Unknown command.")
	assert.Contains(t, got, `error: invalid page "0"`)
	assert.Contains(t, got, "Bye")
	assert.NotContains(t, got, "jane_1")
}
