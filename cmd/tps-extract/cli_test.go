package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

func TestClassify(t *testing.T) {
	storeErr := &objectstore.OpError{Backend: "minio", Op: "open", Key: "tps/pending/a.csv", Err: io.ErrUnexpectedEOF}

	cases := []struct {
		name     string
		err      error
		fallback int
		want     int
	}{
		{"already imported", errors.Wrap(extract.ErrAlreadyImported, "a.csv"), exitDBWrite, exitValidation},
		{"missing extract", extract.ErrNotFound, exitDB, exitValidation},
		{"bad header", services.ErrInvalidHeader, exitDBWrite, exitValidation},
		{"invalid load item", stageditem.ErrInvalidLoadItem, exitDBWrite, exitValidation},
		{"missing object", errors.Wrap(objectstore.ErrNotFound, "x"), exitDBWrite, exitStorage},
		{"store failure", errors.Wrap(storeErr, "import"), exitDBWrite, exitStorage},
		{"canceled", context.Canceled, exitDB, 1},
		{"other", errors.New("boom"), exitDBWrite, exitDBWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, exitCode(classify(tc.err, tc.fallback)))
		})
	}
}

func TestClassify_KeepsExistingCode(t *testing.T) {
	err := withCode(exitUsage, extract.ErrNotFound)
	require.Equal(t, exitUsage, exitCode(classify(err, exitDB)))
	require.NoError(t, classify(nil, exitDB))
}

func TestUsageByDefault(t *testing.T) {
	require.Equal(t, exitUsage, exitCode(usageByDefault(errors.New(`unknown flag: --nope`))))
	require.Equal(t, exitStorage, exitCode(usageByDefault(withCode(exitStorage, errors.New("x")))))
	require.Equal(t, exitOK, exitCode(nil))
}

func TestParseExtractID(t *testing.T) {
	id := uuid.New()
	got, err := parseExtractID("  " + id.String() + " ")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = parseExtractID("not-a-uuid")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestRootCmd_UnknownFlagIsUsageError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"promote", "--nope"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Error(t, err)
	require.Equal(t, exitUsage, exitCode(usageByDefault(err)))
}

func TestReportCmd_RejectsNonXLSXOutput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"report", "--extract", uuid.NewString(), "--output", "out.csv"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Equal(t, exitUsage, exitCode(err))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, services.Summary{
		ExtractID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Filename:  "tps/pending/extract_2024_04.csv",
		CreatedAt: time.Date(2024, 4, 25, 9, 30, 0, 0, time.UTC),
		Valid:     3,
		Invalid:   1,
		Results: map[stageditem.Result]int64{
			stageditem.InvalidTrn:     1,
			stageditem.ValidDataAdded: 2,
		},
	})

	out := buf.String()
	require.Contains(t, out, "extract_2024_04.csv")
	require.Contains(t, out, "valid_data_added")
	require.Contains(t, out, "invalid_trn")
	require.NotContains(t, out, "still pending")
}
