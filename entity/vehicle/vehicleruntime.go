package vehicle

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// NoLane 无待定目标车道
const NoLane = -1

// Runtime 车辆运行时状态
// 功能：记录车辆在路段上的位置、速度与变道状态机
// 说明：只由仿真主循环修改；对外发布时转换为entity.VehicleState
type Runtime struct {
	Agent entity.VehicleAgent

	Lane int     // 所在车道
	S    float64 // 车头纵向位置（米）
	V    float64 // 速度（米/秒）
	A    float64 // 上一步采用的加速度（米/秒²）

	EnterTime          float64 // 进入路段的仿真时间
	PendingTargetLane  int     // 待定变道目标，NoLane表示无
	LastLaneChangeTime float64 // 上次完成变道的时间，初始为-Inf
}

func newRuntime(agent entity.VehicleAgent, lane int, s, v, t float64) *Runtime {
	return &Runtime{
		Agent:              agent,
		Lane:               lane,
		S:                  s,
		V:                  v,
		EnterTime:          t,
		PendingTargetLane:  NoLane,
		LastLaneChangeTime: math.Inf(-1),
	}
}

// ID 车辆ID
func (r *Runtime) ID() int64 {
	return r.Agent.ID
}

// Length 车长
func (r *Runtime) Length() float64 {
	return r.Agent.Vehicle.Length
}

// State 转换为发布用的车辆状态
func (r *Runtime) State(n entity.Network) entity.VehicleState {
	return entity.VehicleState{
		ID:            r.Agent.ID,
		S:             r.S,
		D:             n.LaneOffset(r.Lane),
		Yaw:           0,
		Velocity:      r.V,
		LaneIndex:     r.Lane,
		VehicleClass:  r.Agent.Class,
		DriverProfile: r.Agent.Profile,
	}
}

func (r *Runtime) String() string {
	return fmt.Sprintf("%v{lane=%d, s=%.2f, v=%.2f, pending=%d}", r.Agent, r.Lane, r.S, r.V, r.PendingTargetLane)
}
