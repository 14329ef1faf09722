package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studenthub/internal/model"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "hub.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	_, err := run(t, "migrate")
	require.NoError(t, err)
}

func TestQueryFallsBackWithoutSchema(t *testing.T) {
	out, err := run(t, "query", "--kind", "restaurant", "--location", "Bangalore", "--search", "pizza")
	require.NoError(t, err)

	var got struct {
		Result struct {
			Rows       []map[string]interface{} `json:"rows"`
			TotalCount int                      `json:"totalCount"`
			Source     model.Source             `json:"source"`
		} `json:"result"`
		TotalPages int `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, model.SourceFallback, got.Result.Source)
	assert.Equal(t, 1, got.Result.TotalCount)
	assert.Equal(t, "fallback-restaurant-4", got.Result.Rows[0]["id"])
	assert.Equal(t, 1, got.TotalPages)
}

func TestQueryRejectsBadInput(t *testing.T) {
	_, err := run(t, "query", "--kind", "cinema", "--location", "Kadapa")
	assert.ErrorIs(t, err, model.ErrInvalidQuery)

	_, err = run(t, "query", "--location", "Kadapa", "--filter", "hostel_type")
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
}

func TestServeValidatesConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestListingQueryFilters(t *testing.T) {
	q, err := queryOptions{kind: "hostel", page: 2, filters: []string{"hostel_type = girls"}}.listingQuery()
	require.NoError(t, err)
	assert.Equal(t, model.KindHostel, q.Kind)
	assert.Equal(t, map[string]string{"hostel_type": "girls"}, q.Filters)
}
