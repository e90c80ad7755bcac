package github

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectorInspect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "repository(owner: $owner, name: $name)")
		assert.Equal(t, "mui-org", req.Variables["owner"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"repository":{"nameWithOwner":"mui-org/material-ui-pickers","isPrivate":false,"isArchived":true,"pushedAt":"2020-03-01T10:00:00Z"}}}`)
	}))
	defer srv.Close()

	info, err := NewInspector(srv.Client(), srv.URL).Inspect(context.Background(), "mui-org", "material-ui-pickers")
	require.NoError(t, err)
	assert.Equal(t, "mui-org/material-ui-pickers", info.NameWithOwner)
	assert.False(t, info.IsPrivate)
	assert.True(t, info.IsArchived)
	assert.True(t, info.PushedAt.Equal(time.Date(2020, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestInspectorNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"repository":null},"errors":[{"type":"NOT_FOUND","path":["repository"],"message":"Could not resolve to a Repository with the name 'mui-org/nope'."}]}`)
	}))
	defer srv.Close()

	_, err := NewInspector(srv.Client(), srv.URL).Inspect(context.Background(), "mui-org", "nope")
	assert.ErrorIs(t, err, ErrRepositoryNotFound)
}
