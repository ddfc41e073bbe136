package task

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity/vehicle"
)

// 仅供测试使用的访问器

// PlaceForTest 直接在指定车道与位置放置车辆，不做间隙检查
func (ctx *Context) PlaceForTest(agent entity.VehicleAgent, lane int, s, v float64) *vehicle.Runtime {
	r, ok := ctx.vehicleManager.Add(agent, lane, s, v)
	if !ok {
		panic(fmt.Sprintf("duplicate vehicle %d", agent.ID))
	}
	ctx.sensors.RegisterEntry(agent.ID, r.EnterTime)
	return r
}

// SetStateForTest 覆盖车辆的车道、位置与速度，保留变道状态机
func (ctx *Context) SetStateForTest(id int64, lane int, s, v float64) {
	r, ok := ctx.vehicleManager.Get(id)
	if !ok {
		panic(fmt.Sprintf("unknown vehicle %d", id))
	}
	r.Lane, r.S, r.V = lane, s, v
}

// VehicleForTest 读取车辆运行时状态
func (ctx *Context) VehicleForTest(id int64) (*vehicle.Runtime, bool) {
	return ctx.vehicleManager.Get(id)
}
