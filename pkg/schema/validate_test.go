package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Empty(t *testing.T) {
	var c Collector
	assert.NoError(t, c.Err())
	assert.Equal(t, 0, c.Len())
}

func TestCollector_RequiredAndLength(t *testing.T) {
	var c Collector

	assert.False(t, c.Required("key", "   "))
	assert.True(t, c.Required("name", "ok"))
	assert.False(t, c.Length("name", "ab", 3, 20))
	assert.True(t, c.Length("name", "abc", 3, 20))
	assert.False(t, c.MinItems("colors", 0, 1))

	err := c.Err()
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 3)

	var ve *ValidationError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, CodeMissingField, ve.Code)
	assert.Equal(t, "key", ve.Key)

	require.True(t, errors.As(errs[1], &ve))
	assert.Equal(t, CodeInvalidLen, ve.Code)
	assert.Equal(t, "name must be between 3 and 20 characters long", ve.Reason)
}

func TestCollector_MergeFlattens(t *testing.T) {
	var inner Collector
	inner.Add("a", CodeInvalidField, "bad", nil)
	inner.Add("b", CodeInvalidField, "bad", nil)

	var outer Collector
	outer.Merge(inner.Err())
	outer.Merge(errors.New("plain"))
	outer.Merge(nil)

	assert.Equal(t, 3, outer.Len())
}

func TestAggregateError_Message(t *testing.T) {
	single := &AggregateError{Errors: []error{&ValidationError{Key: "k", Reason: "required"}}}
	assert.Equal(t, `field "k": required`, single.Error())

	multi := &AggregateError{Errors: []error{
		&ValidationError{Key: "a", Reason: "required"},
		&ValidationError{Key: "b", Reason: "too long", Value: "xxxxx"},
	}}
	assert.Contains(t, multi.Error(), "2 validation errors")
	assert.Contains(t, multi.Error(), `field "b": too long (got string)`)
}

func TestLengthMessage(t *testing.T) {
	assert.Equal(t, "key must be 5 characters long", LengthMessage("key", 5, 5))
	assert.Equal(t, "key must be less than 9 characters long", LengthMessage("key", -1, 9))
	assert.Equal(t, "key must be more than 2 characters long", LengthMessage("key", 2, -1))
}
