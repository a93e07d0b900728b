package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_ContainsAnnotatedBaseline(t *testing.T) {
	b, err := fs.ReadFile(FS(), "00001_workforce_baseline.sql")
	require.NoError(t, err)

	s := string(b)
	require.True(t, strings.HasPrefix(s, "-- +goose Up"))
	require.Contains(t, s, "-- +goose Down")
	for _, table := range []string{"tps_extracts", "tps_load_items", "tps_staged_items", "person_employments", "establishments", "persons"} {
		require.Contains(t, s, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
