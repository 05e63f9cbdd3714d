package job_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/job"
)

func TestNewJobStartsInitializing(t *testing.T) {
	j := job.NewJob()
	require.Equal(t, job.Initializing, j.State())
	require.NoError(t, j.Err())
}

func TestTransitionForwardSucceeds(t *testing.T) {
	j := job.NewJob()
	require.NoError(t, j.Transition(job.Pending))
	require.NoError(t, j.Transition(job.Producing))
	require.NoError(t, j.Transition(job.Complete))
	require.Equal(t, job.Complete, j.State())
}

func TestTransitionOutOfTerminalStateFails(t *testing.T) {
	j := job.NewJob()
	require.NoError(t, j.Transition(job.Complete))

	err := j.Transition(job.Pending)
	require.Error(t, err)
	require.Equal(t, job.Complete, j.State())
}

func TestTransitionToSameTerminalStateIsNoop(t *testing.T) {
	j := job.NewJob()
	require.NoError(t, j.Transition(job.Cancelled))
	require.NoError(t, j.Transition(job.Cancelled))
	require.Equal(t, job.Cancelled, j.State())
}

func TestFailLatchesFirstErrorOnly(t *testing.T) {
	j := job.NewJob()

	firstErr := errBoom{"first"}
	secondErr := errBoom{"second"}

	j.Fail(firstErr)
	require.Equal(t, job.Error, j.State())
	require.Equal(t, firstErr, j.Err())

	j.Fail(secondErr)
	require.Equal(t, firstErr, j.Err())
}

type errBoom struct{ msg string }

func (e errBoom) Error() string { return e.msg }

func TestCancelIsNoopOnceTerminal(t *testing.T) {
	j := job.NewJob()
	j.Fail(errBoom{"boom"})
	j.Cancel()
	require.Equal(t, job.Error, j.State())
}

func TestTicketRoundTripsThroughBytes(t *testing.T) {
	t1 := job.NewTicket()
	parsed, err := job.ParseTicket(t1.Bytes())
	require.NoError(t, err)
	require.Equal(t, t1, parsed)
	require.Equal(t, t1.String(), parsed.String())
}

func TestParseTicketRejectsMalformedInput(t *testing.T) {
	_, err := job.ParseTicket([]byte{1, 2, 3})
	require.Error(t, err)
}
