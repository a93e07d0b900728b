package itf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeDBName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"TestPipeline/InvalidTrn", "testpipeline_invalidtrn"},
		{"Test (a) [b]", "test_a_b"},
		{"---", "test_db"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, sanitizeDBName(tc.in), tc.in)
	}
}

func TestSanitizeDBName_TruncatesWithHash(t *testing.T) {
	long := "TestEmploymentRepository/" + strings.Repeat("very_long_subtest_name_", 5)
	got := sanitizeDBName(long)
	require.LessOrEqual(t, len(got), maxDBNameLength)
	require.Equal(t, got, sanitizeDBName(long))
	require.NotEqual(t, got, sanitizeDBName(long+"x"))
}
