package vehicle

import (
	"slices"

	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// cooldownEpsilon 冷却时间比较的浮点容差（秒）
const cooldownEpsilon = 1e-6

// Buckets 按车道分组、按位置升序排列的车辆
type Buckets struct {
	lanes [][]*Runtime
	index map[*Runtime]int // 车辆在本车道分组中的下标
}

func newBuckets(laneCount int, vehicles []*Runtime) *Buckets {
	b := &Buckets{
		lanes: make([][]*Runtime, laneCount),
		index: make(map[*Runtime]int, len(vehicles)),
	}
	for _, v := range vehicles {
		b.lanes[v.Lane] = append(b.lanes[v.Lane], v)
	}
	for _, lane := range b.lanes {
		// 输入按ID有序，稳定排序使同位置车辆按ID排列
		slices.SortStableFunc(lane, func(x, y *Runtime) int {
			switch {
			case x.S < y.S:
				return -1
			case x.S > y.S:
				return 1
			}
			return 0
		})
		for i, v := range lane {
			b.index[v] = i
		}
	}
	return b
}

// Lane 某车道上的车辆，按位置升序
func (b *Buckets) Lane(lane int) []*Runtime {
	return b.lanes[lane]
}

// ownNeighbors 本车道的前车与后车
func (b *Buckets) ownNeighbors(v *Runtime) (leader, follower *Runtime) {
	lane := b.lanes[v.Lane]
	i := b.index[v]
	if i+1 < len(lane) {
		leader = lane[i+1]
	}
	if i > 0 {
		follower = lane[i-1]
	}
	return
}

// Around 其他车道上位置s处的前车（位置大于s）与后车（位置不大于s）
func (b *Buckets) Around(lane int, s float64) (leader, follower *Runtime) {
	vs := b.lanes[lane]
	i, _ := slices.BinarySearchFunc(vs, s, func(v *Runtime, target float64) int {
		if v.S <= target {
			return -1
		}
		return 1
	})
	if i < len(vs) {
		leader = vs[i]
	}
	if i > 0 {
		follower = vs[i-1]
	}
	return
}

// candidate 一个相邻车道的变道评估结果
type candidate struct {
	lane     int
	utility  float64
	accel    float64 // 变道后本车加速度
	accepted bool    // 效用超过阈值、后车不会被迫急刹且间隙可接受
}

// decide 单车决策
// 功能：计算本车加速度，并按滞回状态机决定变道
// 参数：v-本车，b-步前车道分组，policy-车道策略，n-路段，now-步前仿真时间
// 返回：决策结果（不修改车辆状态）
// 算法说明：
// 1. 不变道加速度由本车道前车决定
// 2. 依次评估右侧、左侧相邻车道（重型车辆不评估最左侧车道）：
//   - MOBIL效用 = 本车收益 - 礼让系数×(目标车道后车损失 + 当前车道后车损失) + 策略效用
//   - 目标车道后车以本车为前车时的加速度不得低于-SafetyDecelThreshold
//   - 间隙与碰撞时间满足驾驶员阈值
//
// 3. 无待定目标：效用最高且超过EnterThreshold的可接受车道成为待定目标，本步不变道
// 4. 有待定目标：效用低于ExitThreshold则取消；可接受、超过EnterThreshold且冷却结束则完成变道
func decide(v *Runtime, b *Buckets, policy entity.LanePolicyConfig, n entity.Network, now float64) Decision {
	limit := n.SpeedLimit
	drv := v.Agent.Driver
	curLeader, curFollower := b.ownNeighbors(v)
	accelStay := accelBehind(v, curLeader, limit)

	// 当前车道后车：本车离开后改为跟随本车前车
	currentLoss := 0.
	if curFollower != nil {
		currentLoss = accelBehind(curFollower, v, limit) - accelBehind(curFollower, curLeader, limit)
	}

	candidates := make([]candidate, 0, 2)
	for _, lane := range [2]int{v.Lane - 1, v.Lane + 1} {
		if !n.LaneAllowed(v.Agent, lane) {
			continue
		}
		leader, follower := b.Around(lane, v.S)
		accelChange := accelBehind(v, leader, limit)
		targetLoss := 0.
		safe := true
		q := newGapQuery(v, leader, follower)
		if follower != nil {
			after := accelBehind(follower, v, limit)
			targetLoss = accelBehind(follower, leader, limit) - after
			safe = after >= -policy.SafetyDecelThreshold
		}
		u := MobilIncentive(accelChange-accelStay, targetLoss, currentLoss, drv.Politeness) +
			PolicyUtility(policy, v.Agent, v.Lane, lane, v.V, curLeader, leader)
		candidates = append(candidates, candidate{
			lane:     lane,
			utility:  u,
			accel:    accelChange,
			accepted: u > drv.LaneChangeThreshold && safe && AcceptsGap(q),
		})
	}

	d := Decision{
		Vehicle:            v,
		A:                  accelStay,
		StayA:              accelStay,
		TargetLane:         v.Lane,
		PendingTargetLane:  v.PendingTargetLane,
		LastLaneChangeTime: v.LastLaneChangeTime,
	}
	if v.PendingTargetLane != NoLane {
		i := slices.IndexFunc(candidates, func(c candidate) bool { return c.lane == v.PendingTargetLane })
		switch {
		case i < 0 || candidates[i].utility < drv.ExitThreshold:
			d.PendingTargetLane = NoLane
		case candidates[i].accepted && candidates[i].utility > drv.EnterThreshold &&
			now-v.LastLaneChangeTime+cooldownEpsilon >= drv.LaneChangeCooldown:
			d.A = candidates[i].accel
			d.TargetLane = candidates[i].lane
			d.PendingTargetLane = NoLane
			d.LastLaneChangeTime = now
		}
		return d
	}
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.accepted && c.utility > drv.EnterThreshold && (best == nil || c.utility > best.utility) {
			best = c
		}
	}
	if best != nil {
		d.PendingTargetLane = best.lane
	}
	return d
}
