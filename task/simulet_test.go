package task_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/seeder"
	"github.com/tsinghua-fib-lab/agentsociety-highway/task"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

type fakePublisher struct {
	mu        sync.Mutex
	snapshots []entity.Snapshot
	deltas    []entity.Delta
	stats     []entity.StatsSnapshot
}

func (p *fakePublisher) PublishSnapshot(s entity.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
}

func (p *fakePublisher) PublishDelta(d entity.Delta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas = append(p.deltas, d)
}

func (p *fakePublisher) PublishStats(s entity.StatsSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = append(p.stats, s)
}

type fakeRecorder struct {
	records []entity.StatsSnapshot
}

func (r *fakeRecorder) Record(_ context.Context, s entity.StatsSnapshot) error {
	r.records = append(r.records, s)
	return nil
}

func highway() entity.Network {
	return entity.Network{LaneCount: 3, LaneWidth: 3.5, Length: 1000, SpeedLimit: 33.33}
}

func runEngine(t *testing.T, steps int32, seed uint64) *task.Context {
	source, err := seeder.New(3600, seed, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Total: steps, Interval: 0.1}))
	require.NoError(t, ctx.Run(context.Background(), task.RunOptions{Source: source}))
	return ctx
}

// recordRun 运行引擎并记录每一步发布的快照与统计
func recordRun(t *testing.T, steps int32, seed uint64) *fakePublisher {
	source, err := seeder.New(3600, seed, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Total: steps, Interval: 0.1}))
	pub := &fakePublisher{}
	require.NoError(t, ctx.Run(context.Background(), task.RunOptions{
		Source:           source,
		Publisher:        pub,
		SnapshotInterval: 1,
	}))
	return pub
}

func TestRunIsDeterministic(t *testing.T) {
	a := recordRun(t, 600, 5)
	b := recordRun(t, 600, 5)
	require.Len(t, a.snapshots, 600)
	require.Len(t, b.snapshots, 600)
	assert.NotEmpty(t, a.snapshots[599].Vehicles)
	for i := range a.snapshots {
		require.Equal(t, a.snapshots[i], b.snapshots[i], "tick %d", i+1)
	}
	assert.NotEmpty(t, a.stats)
	assert.Equal(t, a.stats, b.stats)
}

func TestRunSeedsMatter(t *testing.T) {
	a := runEngine(t, 300, 1)
	b := runEngine(t, 300, 2)
	assert.NotEqual(t, a.Snapshot().Vehicles, b.Snapshot().Vehicles)
}

func TestRunPublishes(t *testing.T) {
	source, err := seeder.New(3600, 3, seeder.KeepRightDiscipline)
	require.NoError(t, err)
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Total: 10, Interval: 0.2}))
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	require.NoError(t, ctx.Run(context.Background(), task.RunOptions{
		Source:           source,
		Publisher:        pub,
		Recorder:         rec,
		SnapshotInterval: 5,
	}))
	require.Len(t, pub.snapshots, 2)
	assert.Equal(t, uint64(5), pub.snapshots[0].Version)
	assert.Equal(t, uint64(10), pub.snapshots[1].Version)
	for _, d := range pub.deltas {
		assert.Equal(t, d.BaseVersion+1, d.Version)
		assert.False(t, d.Empty())
	}
	assert.Len(t, pub.stats, 2)
	assert.Equal(t, pub.stats, rec.records)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Interval: 0.1}))
	c, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ctx.Run(c, task.RunOptions{Paced: true}))
	assert.Zero(t, ctx.Clock().InternalStep)
}

func TestRunPacedRespectsWallClock(t *testing.T) {
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Interval: 0.1}), task.WithTimeScale(1))
	c, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	require.NoError(t, ctx.Run(c, task.RunOptions{Paced: true}))
	assert.LessOrEqual(t, ctx.Clock().InternalStep, int32(3))
}

func TestCloseStopsRun(t *testing.T) {
	ctx := task.NewContext(highway(), entity.DefaultLanePolicy(entity.KeepRight),
		task.WithStep(config.ControlStep{Interval: 0.1}))
	ctx.Close()
	require.NoError(t, ctx.Run(context.Background(), task.RunOptions{}))
	assert.Zero(t, ctx.Clock().InternalStep)
}

func TestRunExperiment(t *testing.T) {
	results, err := task.RunExperiment(context.Background(), highway(), 20, 0.1, 1800, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, seeder.KeepRightDiscipline.Name, results[0].Scenario)
	assert.Equal(t, seeder.HogUndertake.Name, results[1].Scenario)
	for _, r := range results {
		assert.Len(t, r.Snapshots, 8)
		assert.Len(t, r.Stats, 20)
		assert.GreaterOrEqual(t, r.MeanThroughput(), 0.0)
	}
}
