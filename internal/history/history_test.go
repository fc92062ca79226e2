package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// Both implementations must satisfy the Journal contract identically.
func journals(t *testing.T) map[string]Journal {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return map[string]Journal{
		"sqlite": store,
		"memory": NewMemoryStore(),
	}
}

func TestAppendThenRecentRoundTrip(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord(OpSave, "/proj/app.py")
			rec.Metadata = map[string]string{"bytes": "42", "backup": "true"}
			require.NoError(t, j.Append(rec))

			got, err := j.Recent(10)
			require.NoError(t, err)
			require.Len(t, got, 1)

			if diff := cmp.Diff(rec, got[0], cmpopts.EquateApproxTime(time.Second)); diff != "" {
				t.Errorf("record round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecentNewestFirstAndLimited(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			paths := []string{"/a", "/b", "/c"}
			for _, p := range paths {
				require.NoError(t, j.Append(FileOperationRecord{Type: OpCreate, Source: p}))
			}

			got, err := j.Recent(2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "/c", got[0].Source)
			require.Equal(t, "/b", got[1].Source)
		})
	}
}

func TestByPathMatchesSourceAndDestination(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, j.Append(FileOperationRecord{Type: OpSave, Source: "/proj/a.py"}))
			require.NoError(t, j.Append(FileOperationRecord{
				Type: OpCreate, Source: "/proj/a.py", Destination: "/proj/a_copy.py",
			}))
			require.NoError(t, j.Append(FileOperationRecord{Type: OpSave, Source: "/proj/other.py"}))

			bySource, err := j.ByPath("/proj/a.py", 10)
			require.NoError(t, err)
			require.Len(t, bySource, 2)

			byDest, err := j.ByPath("/proj/a_copy.py", 10)
			require.NoError(t, err)
			require.Len(t, byDest, 1)
			require.Equal(t, OpCreate, byDest[0].Type)
		})
	}
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, j.Append(FileOperationRecord{Type: OpDelete, Source: "/x"}))

			got, err := j.Recent(1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.NotEmpty(t, got[0].ID)
			require.False(t, got[0].Timestamp.IsZero())
		})
	}
}
