package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrouping(t *testing.T) {
	teams := MustNew([]string{"team", "score"}, [][]any{
		{"red", 1.0},
		{"blue", 2.0},
		{"red", 3.0},
	})

	grouped, err := teams.GroupBy("team")
	require.NoError(t, err)
	assert.Equal(t, []string{"team"}, grouped.Groups())
	assert.Nil(t, teams.Groups(), "source table must not change")
	assert.Equal(t, [][]int{{0, 2}, {1}}, grouped.Partition())
	assert.Equal(t, [][]int{{0, 1, 2}}, teams.Partition())

	_, err = teams.GroupBy("nope")
	require.ErrorIs(t, err, ErrUnknownColumn)

	t.Run("row operations keep the grouping", func(t *testing.T) {
		out, err := grouped.WithColumn("double", func(r Row) (any, error) { return r["score"], nil })
		require.NoError(t, err)
		assert.Equal(t, []string{"team"}, out.Groups())
		assert.Equal(t, []string{"team"}, grouped.Filter(func(Row) bool { return true }).Groups())
		assert.Equal(t, []string{"team"}, grouped.Concat(teams).Groups())
	})

	t.Run("rename follows the grouping column", func(t *testing.T) {
		out, err := grouped.Rename(map[string]string{"team": "side"})
		require.NoError(t, err)
		assert.Equal(t, []string{"side"}, out.Groups())
	})

	t.Run("dropping the grouping column ungroups", func(t *testing.T) {
		out, err := grouped.Select("score")
		require.NoError(t, err)
		assert.Nil(t, out.Groups())
	})

	assert.Nil(t, grouped.Ungroup().Groups())
}

func TestUnorder(t *testing.T) {
	tbl := people()
	assert.False(t, tbl.Ordered())
	assert.Same(t, tbl, tbl.Unorder())

	sorted := tbl.SortStable(func(a, b Row) bool { return Compare(a["age"], b["age"]) < 0 })
	assert.True(t, sorted.Ordered())
	resorted := sorted.SortStable(func(a, b Row) bool { return Compare(a["name"], b["name"]) > 0 })

	ids, _ := resorted.Unorder().Column("id")
	assert.Equal(t, []any{1.0, 2.0, 3.0}, ids, "the order before the first sort is restored")

	filtered := sorted.Filter(func(r Row) bool { return r["id"] != 3.0 })
	back := filtered.Unorder()
	assert.False(t, back.Ordered())
	ids, _ = back.Column("id")
	assert.Equal(t, []any{1.0, 2.0}, ids)
}
