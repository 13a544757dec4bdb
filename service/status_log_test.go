package service

import (
	"fmt"
	"testing"
	"time"

	"mycontroller/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLog_NewestFirst(t *testing.T) {
	var l statusLog
	l.Record(helpers.TestNow(), "launching session %s", "aa")
	l.Record(helpers.TestNow().Add(time.Second), "session %s ready at %s", "aa", "172.20.0.5:5800")

	recent := l.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "session aa ready at 172.20.0.5:5800", recent[0].Message)
	assert.Equal(t, helpers.TestNow().Add(time.Second), recent[0].At)
	assert.Equal(t, "launching session aa", recent[1].Message)
}

func TestStatusLog_CapacityBounded(t *testing.T) {
	var l statusLog
	for i := 0; i < statusLogCapacity+5; i++ {
		l.Record(helpers.TestNow().Add(time.Duration(i)*time.Second), "event %d", i)
	}

	recent := l.Recent()
	require.Len(t, recent, statusLogCapacity)
	// The newest entry leads and the oldest five fell off.
	assert.Equal(t, fmt.Sprintf("event %d", statusLogCapacity+4), recent[0].Message)
	assert.Equal(t, "event 5", recent[len(recent)-1].Message)
}

func TestStatusLog_RecentReturnsCopy(t *testing.T) {
	var l statusLog
	l.Record(helpers.TestNow(), "launching session %s", "aa")

	recent := l.Recent()
	recent[0].Message = "mutated"

	assert.Equal(t, "launching session aa", l.Recent()[0].Message)
}
