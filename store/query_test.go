package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecBuild(t *testing.T) {
	t.Parallel()

	s := Where("gold in january",
		append(Between(FieldDate, "2021-01-01", "2021-01-31"), Eq(FieldMetal, "GOLD"))...)

	query, args, err := s.build(sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, selectColumns+" WHERE date >= ? AND date <= ? AND metal = ? ORDER BY id", query)
	assert.Equal(t, []any{"2021-01-01", "2021-01-31", "GOLD"}, args)

	query, args, err = s.build(postgresDialect)
	require.NoError(t, err)
	assert.Equal(t, selectColumns+" WHERE date >= $1 AND date <= $2 AND metal = $3 ORDER BY id", query)
	require.Len(t, args, 3)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), args[0])
}

func TestSpecBuildNoConditions(t *testing.T) {
	t.Parallel()

	query, args, err := Spec{}.build(sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, selectColumns+" ORDER BY id", query)
	assert.Empty(t, args)
}

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cond Condition
		ok   bool
	}{
		{"id int", Eq(FieldID, 1), true},
		{"id json number", Eq(FieldID, float64(76)), true},
		{"id string", Eq(FieldID, "16"), true},
		{"id fractional", Eq(FieldID, 1.5), false},
		{"rsi float", Condition{FieldRSI, ">", 70.0}, true},
		{"price string", Condition{FieldPrice, "<=", "1900.5"}, true},
		{"macd bool", Condition{FieldMACD, ">", true}, false},
		{"metal", Eq(FieldMetal, "TIN"), true},
		{"metal number", Eq(FieldMetal, 3), false},
		{"date", Eq(FieldDate, "2021-01-01"), true},
		{"date bad", Eq(FieldDate, "01/01/2021"), false},
		{"unknown field", Eq("volume", 1), false},
		{"injected field", Eq("id; DROP TABLE metal_prices", 1), false},
		{"bad op", Condition{FieldRSI, "!=", 50.0}, false},
		{"like op", Condition{FieldMetal, "LIKE", "G%"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Where(tt.name, tt.cond).Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestQueryPredicates(t *testing.T) {
	t.Parallel()

	db, _ := newTestDB(t)
	seed(t, db, fixtureRecords(t))
	ctx := context.Background()

	tests := []struct {
		name string
		spec Spec
		want int
	}{
		{"all", Spec{}, 80},
		{"one date", Where("d", Eq(FieldDate, "2021-01-01")), 2},
		{"date range", Where("r", Between(FieldDate, "2021-01-01", "2021-01-10")...), 20},
		{"metal", Where("m", Eq(FieldMetal, "SILVER")), 40},
		{"unknown metal", Where("tin", Eq(FieldMetal, "TIN")), 0},
		{"id", Where("id", Eq(FieldID, 76)), 1},
		{"id above", Where("ids", Condition{FieldID, ">", 70}), 10},
		{"silver price", Where("p", Eq(FieldMetal, "SILVER"), Condition{FieldPrice, ">", 100.0}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := db.Query(ctx, tt.spec)
			require.NoError(t, err)
			assert.Len(t, recs, tt.want)
			for i := 1; i < len(recs); i++ {
				assert.Less(t, recs[i-1].ID, recs[i].ID)
			}
		})
	}
}

func TestQueryInvalidSpec(t *testing.T) {
	t.Parallel()

	db, _ := newTestDB(t)
	_, err := db.Query(context.Background(), Where("bad", Eq("volume", 1)))
	assert.True(t, errors.Is(err, ErrInvalidSpec))
}
