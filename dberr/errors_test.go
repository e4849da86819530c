package dberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsWalksWrappedChain(t *testing.T) {
	base := errors.New("disk exploded")
	wrapped := Wrap(KindIo, "pager.fetch", base)
	outer := Wrap(KindCorrupt, "engine.Run", wrapped)

	require.True(t, Is(outer, KindCorrupt))
	require.True(t, Is(outer, KindIo))
	require.False(t, Is(outer, KindBusy))
}

func TestWithContextChains(t *testing.T) {
	err := New(KindNoRoom, "btree.AppendLeaf").WithContext(map[string]interface{}{"page": 3})
	require.Equal(t, KindNoRoom, err.Kind)
	require.Equal(t, 3, err.Context["page"])
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := New(KindParse, "ast.Parse")
	require.Contains(t, err.Error(), "ast.Parse")
	require.Contains(t, err.Error(), "Parse")
}
