package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longs(vs ...int64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = LongValue(v)
	}

	return out
}

func TestEvaluate_Count(t *testing.T) {
	v, _, err := Evaluate(SummaryCount, longs(1, 2, 3), Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(3), v)
}

func TestEvaluate_MaxFoldsCarry(t *testing.T) {
	v, carry, err := Evaluate(SummaryMax, longs(4, 9, 2), Carry{Max: LongValue(20)})

	require.NoError(t, err)
	assert.Equal(t, LongValue(20), v)
	assert.Equal(t, LongValue(20), carry.Max)
}

func TestEvaluate_MaxWithoutCarry(t *testing.T) {
	v, carry, err := Evaluate(SummaryMax, longs(4, 9, 2), Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(9), v)
	assert.Equal(t, LongValue(9), carry.Max)
}

func TestEvaluate_Min(t *testing.T) {
	v, carry, err := Evaluate(SummaryMin, longs(4, 9, 2), Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(2), v)
	assert.Equal(t, LongValue(2), carry.Min)
}

func TestEvaluate_Mean(t *testing.T) {
	v, _, err := Evaluate(SummaryMean, longs(2, 4, 6), Carry{})

	require.NoError(t, err)
	assert.Equal(t, DoubleValue(4), v)
}

// TestEvaluate_MeanMedianModePreserveIncomingCarry guards against a chain
// like [max, min, mean] losing its already-folded Min/Max: a step that
// doesn't itself fold into the carry must still pass the incoming carry
// through unchanged, not reset it to a bare Carry{}.
func TestEvaluate_MeanMedianModePreserveIncomingCarry(t *testing.T) {
	incoming := Carry{Max: LongValue(9), Min: LongValue(2)}

	_, meanCarry, err := Evaluate(SummaryMean, longs(4, 9, 2), incoming)
	require.NoError(t, err)
	assert.Equal(t, incoming, meanCarry)

	_, medianCarry, err := Evaluate(SummaryMedian, longs(4, 9, 2), incoming)
	require.NoError(t, err)
	assert.Equal(t, incoming, medianCarry)

	_, modeCarry, err := Evaluate(SummaryMode, longs(4, 9, 2), incoming)
	require.NoError(t, err)
	assert.Equal(t, incoming, modeCarry)
}

func TestEvaluate_MedianOddCount(t *testing.T) {
	v, _, err := Evaluate(SummaryMedian, longs(5, 1, 3), Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(3), v)
}

func TestEvaluate_MedianEvenCountAverages(t *testing.T) {
	v, _, err := Evaluate(SummaryMedian, longs(1, 2, 3, 4), Carry{})

	require.NoError(t, err)
	assert.Equal(t, DoubleValue(2.5), v)
}

func TestEvaluate_MedianHighAndLow(t *testing.T) {
	hi, _, err := Evaluate(SummaryMedianHigh, longs(1, 2, 3, 4), Carry{})
	require.NoError(t, err)
	assert.Equal(t, LongValue(3), hi)

	lo, _, err := Evaluate(SummaryMedianLow, longs(1, 2, 3, 4), Carry{})
	require.NoError(t, err)
	assert.Equal(t, LongValue(2), lo)
}

func TestEvaluate_Mode(t *testing.T) {
	v, _, err := Evaluate(SummaryMode, longs(1, 2, 2, 3), Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(2), v)
}

func TestEvaluate_List(t *testing.T) {
	v, _, err := Evaluate(SummaryList, longs(1, 2, 3), Carry{})

	require.NoError(t, err)
	lv, ok := v.(ListValue)
	require.True(t, ok)
	assert.Len(t, lv, 3)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	_, _, err := Evaluate(SummaryCount, nil, Carry{})

	require.ErrorIs(t, err, ErrEmptySummaryInput)
}

func TestEvaluate_UnknownSummary(t *testing.T) {
	_, _, err := Evaluate(SummaryName("bogus"), longs(1), Carry{})

	require.ErrorIs(t, err, ErrUnknownSummary)
}

func TestEvaluate_MixedValueTypes(t *testing.T) {
	_, _, err := Evaluate(SummaryCount, []Value{LongValue(1), KeywordValue("x")}, Carry{})

	require.ErrorIs(t, err, ErrMixedValueTypes)
}

func TestEvaluate_FlattensListValues(t *testing.T) {
	nested := []Value{ListValue(longs(1, 2)), LongValue(3)}

	v, _, err := Evaluate(SummaryCount, nested, Carry{})

	require.NoError(t, err)
	assert.Equal(t, LongValue(3), v)
}

func TestListValue_Dedup(t *testing.T) {
	lv := ListValue(append(longs(1, 2, 1), LongValue(3)))

	deduped := lv.Dedup()

	assert.Len(t, deduped, 3)
}
