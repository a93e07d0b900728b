package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Now()
	e, err := New(" tps/pending/TPS_20240425.csv ", now)
	require.NoError(t, err)
	require.Equal(t, "TPS_20240425.csv", e.Filename)
	require.Equal(t, now, e.CreatedAt)
	require.NotEmpty(t, e.ID)

	_, err = New("  ", now)
	require.ErrorIs(t, err, ErrEmptyFilename)
}
