package allocatortree_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
)

func TestAllocateWithinCap(t *testing.T) {
	root := allocatortree.NewRoot("root", 1024, memory.NewGoAllocator())
	child := root.NewChild("child", allocatortree.Unbounded)

	require.NoError(t, child.Allocate(512))
	require.Equal(t, int64(512), child.Reserved())
	require.Equal(t, int64(512), root.Reserved())
}

func TestAllocateExceedsAncestorCap(t *testing.T) {
	root := allocatortree.NewRoot("root", 100, memory.NewGoAllocator())
	child := root.NewChild("child", allocatortree.Unbounded)

	require.NoError(t, child.Allocate(60))
	err := child.Allocate(60)
	require.Error(t, err)
	require.Equal(t, int64(60), child.Reserved())
	require.Equal(t, int64(60), root.Reserved())
}

func TestFreeDecrementsChain(t *testing.T) {
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	child := root.NewChild("child", allocatortree.Unbounded)

	require.NoError(t, child.Allocate(128))
	child.Free(128)
	require.Equal(t, int64(0), child.Reserved())
	require.Equal(t, int64(0), root.Reserved())
}

func TestCloseRequiresZeroUsage(t *testing.T) {
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	child := root.NewChild("child", allocatortree.Unbounded)
	require.NoError(t, child.Allocate(16))

	err := child.Close()
	require.Error(t, err)

	child.Free(16)
	require.NoError(t, child.Close())
}

func TestCloseRequiresNoChildren(t *testing.T) {
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	_ = root.NewChild("child", allocatortree.Unbounded)

	require.Error(t, root.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	root := allocatortree.NewRoot("root", allocatortree.Unbounded, memory.NewGoAllocator())
	require.NoError(t, root.Close())
	require.NoError(t, root.Close())
}
