package seeder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/seeder"
)

func take(s *seeder.Seeder, n int) []seeder.SpawnEvent {
	out := make([]seeder.SpawnEvent, 0, n)
	for e := range s.Events() {
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}

func TestSeederDeterministic(t *testing.T) {
	a, err := seeder.New(1800, 42, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	b, err := seeder.New(1800, 42, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	assert.Equal(t, take(a, 200), take(b, 200))

	c, _ := seeder.New(1800, 43, seeder.KeepRightDiscipline)
	assert.NotEqual(t, take(a, 50), take(c, 50))
}

func TestSeederMonotonic(t *testing.T) {
	s, _ := seeder.New(3600, 7, seeder.HogUndertake)
	prev := 0.0
	for i, e := range take(s, 1000) {
		assert.Greater(t, e.Time, prev)
		assert.Equal(t, int64(i+1), e.Agent.ID)
		prev = e.Time
	}
}

func TestSeederRestartable(t *testing.T) {
	s, _ := seeder.New(1200, 3, seeder.KeepRightDiscipline)
	first := []seeder.SpawnEvent{s.Next(), s.Next(), s.Next()}
	assert.Equal(t, first, take(s, 3))
	// Events不影响Next
	assert.Equal(t, int64(4), s.Next().Agent.ID)
	s.Reset()
	assert.Equal(t, first[0], s.Next())
}

func TestSeederRateAndMix(t *testing.T) {
	s, _ := seeder.New(3600, 11, seeder.KeepRightDiscipline)
	const n = 20000
	cars, normals := 0, 0
	var last float64
	for range n {
		e := s.Next()
		last = e.Time
		if e.Agent.Class == entity.Car {
			cars++
		}
		if e.Agent.Profile == entity.Normal {
			normals++
		}
		assert.Equal(t, entity.LookupVehicle(e.Agent.Class), e.Agent.Vehicle)
	}
	assert.InDelta(t, 1.0, last/n, 0.05)
	assert.InDelta(t, 0.65, float64(cars)/n, 0.02)
	assert.InDelta(t, 0.60, float64(normals)/n, 0.02)
}

func TestSeederZeroDemand(t *testing.T) {
	s, err := seeder.New(0, 1, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.Next().Time, 1.0)
}

func TestParseScenario(t *testing.T) {
	m, err := seeder.ParseScenario("hog")
	require.NoError(t, err)
	assert.Equal(t, entity.UndertakeFriendly, m.Policy)
	_, err = seeder.ParseScenario("chaos")
	assert.Error(t, err)

	_, err = seeder.New(100, 1, seeder.TrafficMix{Name: "empty"})
	assert.Error(t, err)
}
