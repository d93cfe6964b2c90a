package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunner_OrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"persist", PhasePersist, &log})
	r.Register(recorder{"update-a", PhaseUpdate, &log})
	r.Register(recorder{"input", PhaseInput, &log})
	r.Register(recorder{"update-b", PhaseUpdate, &log})

	r.Tick(time.Millisecond)
	require.Equal(t, []string{"input", "update-a", "update-b", "persist"}, log)
	require.Equal(t, 4, r.Len())
}

func TestRunner_TickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"a", PhaseInput, &log})
	r.Register(recorder{"b", PhaseUpdate, &log})

	r.TickPhase(PhaseUpdate, time.Millisecond)
	require.Equal(t, []string{"b"}, log)
	require.Equal(t, "post_update", PhasePostUpdate.String())
}
