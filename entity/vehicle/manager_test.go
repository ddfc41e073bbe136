package vehicle_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-highway/clock"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

type fakeCtx struct {
	clock   *clock.Clock
	network entity.Network
	policy  entity.LanePolicyConfig
}

func (c *fakeCtx) Clock() *clock.Clock                 { return c.clock }
func (c *fakeCtx) Network() entity.Network             { return c.network }
func (c *fakeCtx) LanePolicy() entity.LanePolicyConfig { return c.policy }

func newFakeCtx(lanes int) *fakeCtx {
	return &fakeCtx{
		clock:   clock.New(config.ControlStep{Interval: 0.2}),
		network: entity.Network{LaneCount: lanes, LaneWidth: 3.5, Length: 500, SpeedLimit: limit},
		policy:  entity.DefaultLanePolicy(entity.KeepRight),
	}
}

func agent(id int64) entity.VehicleAgent {
	return entity.NewVehicleAgent(id, entity.Car, entity.Normal)
}

func TestManagerAddRemove(t *testing.T) {
	m := vehicle.NewManager(newFakeCtx(2))
	_, ok := m.Add(agent(3), 0, 10, 0)
	require.True(t, ok)
	_, ok = m.Add(agent(1), 1, 20, 0)
	require.True(t, ok)
	_, ok = m.Add(agent(2), 0, 30, 0)
	require.True(t, ok)
	_, ok = m.Add(agent(2), 1, 40, 0)
	assert.False(t, ok)
	assert.Equal(t, 3, m.Len())

	ids := []int64{}
	for _, v := range m.Vehicles() {
		ids = append(ids, v.ID())
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)

	v, ok := m.Get(3)
	require.True(t, ok)
	assert.Equal(t, vehicle.NoLane, v.PendingTargetLane)
	assert.True(t, math.IsInf(v.LastLaneChangeTime, -1))

	_, ok = m.Remove(2)
	assert.True(t, ok)
	_, ok = m.Remove(2)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestManagerNearest(t *testing.T) {
	m := vehicle.NewManager(newFakeCtx(2))
	m.Add(agent(1), 0, 10, 0)
	m.Add(agent(2), 0, 50, 0)
	m.Add(agent(3), 0, 30, 0)
	m.Add(agent(4), 1, 20, 0)

	leader, follower := m.Nearest(0, 20)
	assert.Equal(t, int64(3), leader.ID())
	assert.Equal(t, int64(1), follower.ID())
	leader, follower = m.Nearest(0, 30)
	assert.Equal(t, int64(3), leader.ID())
	assert.Equal(t, int64(1), follower.ID())
	leader, follower = m.Nearest(1, 0)
	assert.Equal(t, int64(4), leader.ID())
	assert.Nil(t, follower)
}

func TestBucketsAround(t *testing.T) {
	m := vehicle.NewManager(newFakeCtx(2))
	m.Add(agent(1), 0, 10, 0)
	m.Add(agent(2), 0, 50, 0)
	m.Add(agent(3), 0, 30, 0)
	b := m.Buckets()
	lane := b.Lane(0)
	require.Len(t, lane, 3)
	assert.Equal(t, []float64{10, 30, 50}, []float64{lane[0].S, lane[1].S, lane[2].S})
	assert.Empty(t, b.Lane(1))

	leader, follower := b.Around(0, 30)
	assert.Equal(t, int64(2), leader.ID())
	assert.Equal(t, int64(3), follower.ID())
	leader, follower = b.Around(0, 60)
	assert.Nil(t, leader)
	assert.Equal(t, int64(2), follower.ID())
	leader, follower = b.Around(1, 30)
	assert.Nil(t, leader)
	assert.Nil(t, follower)
}

func TestManagerIntegrate(t *testing.T) {
	m := vehicle.NewManager(newFakeCtx(1))
	a, _ := m.Add(agent(1), 0, 100, 10)
	b, _ := m.Add(agent(2), 0, 495, 20)
	c, _ := m.Add(agent(3), 0, 200, 1)
	a.A = 2
	b.A = 0
	c.A = -3.5

	exited := m.Integrate(0.5)
	require.Len(t, exited, 1)
	assert.Equal(t, int64(2), exited[0].ID())
	assert.Equal(t, 2, m.Len())
	assert.InDelta(t, 11, a.V, 1e-12)
	assert.InDelta(t, 105.5, a.S, 1e-12)
	// 速度不为负
	assert.Equal(t, 0.0, c.V)
	assert.Equal(t, 200.0, c.S)
}

func TestManagerHysteresisOnEmptyRoad(t *testing.T) {
	ctx := newFakeCtx(3)
	m := vehicle.NewManager(ctx)
	v, _ := m.Add(agent(1), 1, 50, 25)

	// 第一步：只进入待定状态
	ds := m.Decide(m.Buckets())
	require.Len(t, ds, 1)
	assert.False(t, ds[0].Committed())
	assert.Equal(t, 0, m.Apply(ds))
	assert.Equal(t, 1, v.Lane)
	assert.Equal(t, 0, v.PendingTargetLane)

	// 第二步：完成变道
	ds = m.Decide(m.Buckets())
	assert.True(t, ds[0].Committed())
	assert.Equal(t, 1, m.Apply(ds))
	assert.Equal(t, 0, v.Lane)
	assert.Equal(t, vehicle.NoLane, v.PendingTargetLane)
	assert.Equal(t, ctx.clock.T, v.LastLaneChangeTime)
}

func TestHeavyVehicleNeverTargetsLeftmostLane(t *testing.T) {
	ctx := newFakeCtx(2)
	ctx.policy = entity.DefaultLanePolicy(entity.Hogging)
	m := vehicle.NewManager(ctx)
	truck := entity.NewVehicleAgent(1, entity.Truck, entity.LaneChanger)
	v, _ := m.Add(truck, 0, 50, 30)
	m.Add(agent(2), 0, 60, 5)
	for range 10 {
		m.Apply(m.Decide(m.Buckets()))
		assert.Equal(t, vehicle.NoLane, v.PendingTargetLane)
		assert.Equal(t, 0, v.Lane)
	}
}

func TestSimultaneousMergeIntoSameLane(t *testing.T) {
	// 两侧车道各有一辆车被慢车阻挡，同时向空的中间车道并线
	ctx := newFakeCtx(3)
	ctx.policy = entity.DefaultLanePolicy(entity.UndertakeFriendly)
	m := vehicle.NewManager(ctx)
	right, _ := m.Add(agent(1), 0, 50, 25)
	m.Add(agent(2), 0, 60, 8)
	left, _ := m.Add(agent(5), 2, 50, 25)
	m.Add(agent(6), 2, 60, 8)

	assert.Equal(t, 0, m.Apply(m.Decide(m.Buckets())))
	require.Equal(t, 1, right.PendingTargetLane)
	require.Equal(t, 1, left.PendingTargetLane)

	ds := m.Decide(m.Buckets())
	require.True(t, ds[0].Committed())
	require.True(t, ds[2].Committed())
	assert.Equal(t, 1, m.Apply(ds))

	// ID较小者完成变道
	assert.Equal(t, 1, right.Lane)
	assert.Equal(t, vehicle.NoLane, right.PendingTargetLane)
	assert.Equal(t, ctx.clock.T, right.LastLaneChangeTime)
	// 另一辆车留在原车道，保持待定且不更新变道时间
	assert.Equal(t, 2, left.Lane)
	assert.Equal(t, 1, left.PendingTargetLane)
	assert.True(t, math.IsInf(left.LastLaneChangeTime, -1))

	var middle []int64
	for _, v := range m.Vehicles() {
		if v.Lane == 1 {
			middle = append(middle, v.ID())
		}
	}
	assert.Equal(t, []int64{1}, middle)
}
