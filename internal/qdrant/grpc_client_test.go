package qdrant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClientConfigApplyDefaults(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)

	custom := &ClientConfig{Host: "vectors.internal", Port: 7000}
	custom.ApplyDefaults()
	assert.Equal(t, "vectors.internal", custom.Host)
	assert.Equal(t, 7000, custom.Port)
}

func TestClientConfigValidate(t *testing.T) {
	valid := DefaultClientConfig()
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ClientConfig{Host: "", Port: 6334}).Validate())
	assert.Error(t, (&ClientConfig{Host: "localhost", Port: 0}).Validate())
	assert.Error(t, (&ClientConfig{Host: "localhost", Port: 70000}).Validate())
}

func TestConvertToQdrantValue(t *testing.T) {
	assert.Equal(t, "action", convertToQdrantValue("action").GetStringValue())
	assert.EqualValues(t, 42, convertToQdrantValue(42).GetIntegerValue())
	assert.EqualValues(t, 42, convertToQdrantValue(int64(42)).GetIntegerValue())
	assert.EqualValues(t, 42, convertToQdrantValue(uint(42)).GetIntegerValue())
	assert.Equal(t, 8.5, convertToQdrantValue(8.5).GetDoubleValue())
	assert.True(t, convertToQdrantValue(true).GetBoolValue())

	list := convertToQdrantValue([]string{"a", "b"}).GetListValue()
	require.NotNil(t, list)
	require.Len(t, list.Values, 2)
	assert.Equal(t, "a", list.Values[0].GetStringValue())
}

func TestExtractValueRoundTrip(t *testing.T) {
	payload := map[string]interface{}{
		"title":  "Monster",
		"score":  8.5,
		"tags":   []string{"seinen", "thriller"},
		"hidden": false,
	}

	point := convertToQdrantPoint(&Point{ID: 7, Vector: []float32{1, 0}, Payload: payload})
	got := extractPayload(point.Payload)

	assert.Equal(t, "Monster", got["title"])
	assert.Equal(t, 8.5, got["score"])
	assert.Equal(t, false, got["hidden"])
	assert.Equal(t, []interface{}{"seinen", "thriller"}, got["tags"])
}

func TestConvertToQdrantFilter(t *testing.T) {
	t.Run("nil filter stays nil", func(t *testing.T) {
		assert.Nil(t, convertToQdrantFilter(nil))
	})

	t.Run("clauses map onto their slots", func(t *testing.T) {
		gte := 8.0
		start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
		f := &Filter{
			Must: []Condition{
				{Field: "score", Range: &RangeCondition{Gte: &gte}},
				{Field: "start_date", DatetimeRange: &DatetimeRangeCondition{Gte: &start}},
			},
			Should:  []Condition{{Field: "type", Match: "TV"}},
			MustNot: []Condition{{Field: "status", Match: "CANCELLED"}},
		}

		got := convertToQdrantFilter(f)
		require.NotNil(t, got)
		require.Len(t, got.Must, 2)
		require.Len(t, got.Should, 1)
		require.Len(t, got.MustNot, 1)

		scoreField := got.Must[0].GetField()
		require.NotNil(t, scoreField)
		assert.Equal(t, "score", scoreField.Key)
		require.NotNil(t, scoreField.Range)
		assert.Equal(t, &gte, scoreField.Range.Gte)

		dateField := got.Must[1].GetField()
		require.NotNil(t, dateField)
		require.NotNil(t, dateField.DatetimeRange)
		assert.Equal(t, start, dateField.DatetimeRange.Gte.AsTime())
		assert.Nil(t, dateField.DatetimeRange.Lte)

		typeField := got.Should[0].GetField()
		require.NotNil(t, typeField)
		assert.Equal(t, "type", typeField.Key)
		assert.Equal(t, "TV", typeField.Match.GetKeyword())
	})
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, isTransientError(status.Error(codes.Unavailable, "down")))
	assert.True(t, isTransientError(status.Error(codes.ResourceExhausted, "throttled")))
	assert.False(t, isTransientError(status.Error(codes.InvalidArgument, "bad vector")))
	assert.False(t, isTransientError(errors.New("plain error")))
	assert.False(t, isTransientError(nil))
}
