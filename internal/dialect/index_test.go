package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexes_KeyPositionNotArrivalOrder(t *testing.T) {
	col2 := IndexRow{IndexName: "ix", Unique: true, Column: "b", AttNum: 2, KeyAttNums: []int{2, 1}}
	col1 := IndexRow{IndexName: "ix", Unique: true, Column: "a", AttNum: 1, KeyAttNums: []int{2, 1}}

	for _, rows := range [][]IndexRow{{col2, col1}, {col1, col2}} {
		idx := BuildIndexes("t", rows, DefaultIndexKeyLimit)
		require.Len(t, idx, 1)
		assert.Equal(t, []string{"b", "a"}, idx[0].Columns)
		assert.True(t, idx[0].Unique)
		assert.Equal(t, "t", idx[0].Table)
	}
}

func TestBuildIndexes_GroupsInFirstSeenOrder(t *testing.T) {
	rows := []IndexRow{
		{IndexName: "a_idx", Column: "x", AttNum: 1, KeyAttNums: []int{1}},
		{IndexName: "b_idx", Column: "y", AttNum: 2, KeyAttNums: []int{2, 3}},
		{IndexName: "b_idx", Column: "z", AttNum: 3, KeyAttNums: []int{2, 3}},
	}
	idx := BuildIndexes("t", rows, DefaultIndexKeyLimit)
	require.Len(t, idx, 2)
	assert.Equal(t, "a_idx", idx[0].Name)
	assert.Equal(t, []string{"y", "z"}, idx[1].Columns)
}

func TestBuildIndexes_ColumnsMatchKeyCount(t *testing.T) {
	// An expression key (attnum 0) never joins a column row.
	rows := []IndexRow{{IndexName: "expr_idx", Column: "a", AttNum: 1, KeyAttNums: []int{0, 1}}}
	idx := BuildIndexes("t", rows, DefaultIndexKeyLimit)
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"", "a"}, idx[0].Columns)
}

func TestBuildIndexes_LimitDropsTrailingKeys(t *testing.T) {
	keys := []int{1, 2, 3}
	rows := []IndexRow{
		{IndexName: "wide", Column: "a", AttNum: 1, KeyAttNums: keys},
		{IndexName: "wide", Column: "b", AttNum: 2, KeyAttNums: keys},
	}
	idx := BuildIndexes("t", rows, 2)
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"a", "b"}, idx[0].Columns)
}

func TestBuildIndexes_Empty(t *testing.T) {
	idx := BuildIndexes("t", nil, DefaultIndexKeyLimit)
	assert.NotNil(t, idx)
	assert.Empty(t, idx)
}

func TestParseIndKey(t *testing.T) {
	keys, err := ParseIndKey("2 1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, keys)

	keys, err = ParseIndKey("")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = ParseIndKey("1 x")
	assert.Error(t, err)
}
