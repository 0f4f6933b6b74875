package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob() Job {
	return Job{
		ConfigID:    "cfg-1",
		ConfigName:  "Reports",
		Source:      "site-a",
		Destination: "site-b",
		Direction:   DirectionBoth,
		Query:       `[ "title" like '*' ]`,
	}
}

func TestJob_KeyIgnoresNonIdentityFields(t *testing.T) {
	j1 := testJob()
	j2 := testJob()
	j2.Query = `[ "title" = 'other' ]`
	j2.ModifiedAfter = time.Now()
	j2.FailedItemIDs = []string{"m-1"}

	assert.Equal(t, j1.Key(), j2.Key())
}

func TestJob_KeyDistinguishesDirection(t *testing.T) {
	j1 := testJob()
	j2 := testJob()
	j2.Direction = DirectionPull

	assert.NotEqual(t, j1.Key(), j2.Key())
}

func TestJob_KeyNormalizesUnicode(t *testing.T) {
	j1 := testJob()
	j1.Source = "caf\u00e9"
	j2 := testJob()
	j2.Source = " cafe\u0301 "

	assert.Equal(t, j1.Key(), j2.Key())
}

func TestJob_KeyString(t *testing.T) {
	assert.Equal(t, "cfg-1:site-a->site-b/BOTH", testJob().Key().String())
}

func TestJob_Validate(t *testing.T) {
	require.NoError(t, testJob().Validate())

	testCases := []struct {
		name   string
		mutate func(*Job)
	}{
		{"missing config", func(j *Job) { j.ConfigID = " " }},
		{"missing source", func(j *Job) { j.Source = "" }},
		{"missing destination", func(j *Job) { j.Destination = "" }},
		{"missing query", func(j *Job) { j.Query = "" }},
		{"bad direction", func(j *Job) { j.Direction = "SIDEWAYS" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			j := testJob()
			tc.mutate(&j)
			assert.Error(t, j.Validate())
		})
	}
}

func TestJob_CloneDoesNotAlias(t *testing.T) {
	j := testJob()
	j.ExcludedNodes = []string{"site-c"}
	j.FailedItemIDs = []string{"m-1"}

	c := j.Clone()
	c.ExcludedNodes[0] = "mutated"
	c.FailedItemIDs[0] = "mutated"

	assert.Equal(t, "site-c", j.ExcludedNodes[0])
	assert.Equal(t, "m-1", j.FailedItemIDs[0])
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("both")
	require.NoError(t, err)
	assert.Equal(t, DirectionBoth, d)

	_, err = ParseDirection("up")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	assert.True(t, DirectionBoth.Pulls())
	assert.True(t, DirectionBoth.Pushes())
	assert.True(t, DirectionPull.Pulls())
	assert.False(t, DirectionPull.Pushes())
	assert.False(t, DirectionPush.Pulls())
}
