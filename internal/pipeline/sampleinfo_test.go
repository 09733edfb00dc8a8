package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleInfo_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sample_info")
	want := SampleInfo{
		Handle:   "test",
		Survey:   true,
		NTracers: 1234,
		NMocks:   56,
		BoxSide:  789.5,
		RNear:    10.25,
		RFar:     300.75,
		RunID:    "abc-123",
	}
	require.NoError(t, want.Write(path))

	got, err := ReadSampleInfo(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSampleInfo_ValidateAgainstTable(t *testing.T) {
	s := SampleInfo{NTracers: 100, NMocks: 20}
	require.NoError(t, s.ValidateAgainstTable(100, 20))
	require.Error(t, s.ValidateAgainstTable(100, 21))
	require.Error(t, s.ValidateAgainstTable(99, 20))
}
