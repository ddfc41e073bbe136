package vehicle

import (
	"cmp"
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// Manager 车辆管理器
// 功能：维护路段上的全部车辆，执行分组、决策、应用与积分
// 说明：车辆按ID升序保存，所有遍历顺序与运行环境无关
type Manager struct {
	ctx      entity.ITaskContext
	vehicles map[int64]*Runtime
	order    []*Runtime // 按ID升序
}

// NewManager 创建车辆管理器
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:      ctx,
		vehicles: make(map[int64]*Runtime),
	}
}

// Len 车辆数
func (m *Manager) Len() int {
	return len(m.order)
}

// Get 按ID查找车辆
func (m *Manager) Get(id int64) (*Runtime, bool) {
	v, ok := m.vehicles[id]
	return v, ok
}

// Vehicles 全部车辆（按ID升序，调用方不得修改切片）
func (m *Manager) Vehicles() []*Runtime {
	return m.order
}

// Add 在指定车道与位置加入车辆
// 返回：新车辆与是否成功（ID重复时失败）
func (m *Manager) Add(agent entity.VehicleAgent, lane int, s, v float64) (*Runtime, bool) {
	if _, ok := m.vehicles[agent.ID]; ok {
		return nil, false
	}
	r := newRuntime(agent, lane, s, v, m.ctx.Clock().T)
	m.vehicles[agent.ID] = r
	i, _ := slices.BinarySearchFunc(m.order, agent.ID, func(x *Runtime, id int64) int {
		return cmp.Compare(x.ID(), id)
	})
	m.order = slices.Insert(m.order, i, r)
	log.Debugf("add %v", r)
	return r, true
}

// Remove 移除车辆
func (m *Manager) Remove(id int64) (*Runtime, bool) {
	r, ok := m.vehicles[id]
	if !ok {
		return nil, false
	}
	delete(m.vehicles, id)
	m.order = slices.DeleteFunc(m.order, func(x *Runtime) bool { return x == r })
	return r, true
}

// Nearest 车道上位置s处的最近前车（位置不小于s）与最近后车（位置小于s）
// 说明：用于生成车辆时的间隙检查，直接反映当前状态
func (m *Manager) Nearest(lane int, s float64) (leader, follower *Runtime) {
	for _, v := range m.order {
		if v.Lane != lane {
			continue
		}
		if v.S >= s {
			if leader == nil || v.S < leader.S {
				leader = v
			}
		} else if follower == nil || v.S > follower.S {
			follower = v
		}
	}
	return
}

// Buckets 按车道分组
func (m *Manager) Buckets() *Buckets {
	return newBuckets(m.ctx.Network().LaneCount, m.order)
}

// Decide 基于步前状态为全部车辆计算决策
// 说明：结果按ID升序；决策之间互不可见
func (m *Manager) Decide(b *Buckets) []Decision {
	policy := m.ctx.LanePolicy()
	network := m.ctx.Network()
	now := m.ctx.Clock().T
	return lo.Map(m.order, func(v *Runtime, _ int) Decision {
		return decide(v, b, policy, network, now)
	})
}

// Apply 应用决策
// 功能：按ID升序写回决策；变道前以已写回的目标车道状态重新检查间隙
// 说明：两车同步并入同一车道时，ID较小者完成变道，其余撤销并保留待定目标
// 返回：本步完成变道的车辆数
func (m *Manager) Apply(decisions []Decision) int {
	slices.SortStableFunc(decisions, func(a, b Decision) int {
		return cmp.Compare(a.Vehicle.ID(), b.Vehicle.ID())
	})
	changes := 0
	for _, d := range decisions {
		if d.Committed() {
			leader, follower := m.around(d.TargetLane, d.Vehicle)
			if !AcceptsGap(newGapQuery(d.Vehicle, leader, follower)) {
				log.Debugf("lane change %v -> %d revoked", d.Vehicle, d.TargetLane)
				d = d.revoke()
			}
		}
		if d.Committed() {
			changes++
			log.Debugf("lane change %v -> %d", d.Vehicle, d.TargetLane)
		}
		d.apply()
	}
	return changes
}

// around 车道上除v以外的最近前车（位置大于v）与最近后车（位置不大于v），反映当前车道取值
func (m *Manager) around(lane int, v *Runtime) (leader, follower *Runtime) {
	for _, x := range m.order {
		if x == v || x.Lane != lane {
			continue
		}
		if x.S > v.S {
			if leader == nil || x.S < leader.S {
				leader = x
			}
		} else if follower == nil || x.S > follower.S {
			follower = x
		}
	}
	return
}

// Integrate 显式欧拉积分并移除驶出路段的车辆
// 功能：v = max(0, v + a·dt)，s = s + v·dt
// 返回：驶出的车辆（按ID升序）
func (m *Manager) Integrate(dt float64) []*Runtime {
	length := m.ctx.Network().Length
	var exited []*Runtime
	for _, v := range m.order {
		v.V = math.Max(0, v.V+v.A*dt)
		v.S += v.V * dt
		if v.S >= length {
			exited = append(exited, v)
		}
	}
	for _, v := range exited {
		m.Remove(v.ID())
	}
	return exited
}
