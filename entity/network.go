package entity

import (
	"github.com/pkg/errors"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

// Network 单条直线多车道路段
// 说明：车道0为最右侧，LaneCount-1为最左侧
type Network struct {
	LaneCount      int
	LaneWidth      float64
	Length         float64
	SpeedLimit     float64
	OnRampPosition *float64
}

// NewNetwork 根据配置创建路段
func NewNetwork(c config.Network) (Network, error) {
	n := Network{
		LaneCount:      c.Lanes,
		LaneWidth:      c.LaneWidth,
		Length:         c.Length,
		SpeedLimit:     c.SpeedLimit,
		OnRampPosition: c.OnRamp,
	}
	return n, n.Validate()
}

// Validate 校验几何参数
func (n Network) Validate() error {
	if n.LaneCount < 1 {
		return errors.Errorf("network: lane count must be >= 1, got %d", n.LaneCount)
	}
	if n.LaneWidth <= 0 || n.Length <= 0 || n.SpeedLimit <= 0 {
		return errors.Errorf("network: width/length/speed limit must be positive: %+v", n)
	}
	// 匝道位于路段内且不在终点（终点处生成的车辆会立即驶出）
	if ramp := n.OnRampPosition; ramp != nil && (!n.Contains(*ramp) || *ramp == n.Length) {
		return errors.Errorf("network: on-ramp position %v out of [0, %v)", *n.OnRampPosition, n.Length)
	}
	return nil
}

// LeftmostLane 最左侧车道编号
func (n Network) LeftmostLane() int {
	return n.LaneCount - 1
}

// ValidLane 车道编号是否存在
func (n Network) ValidLane(lane int) bool {
	return lane >= 0 && lane < n.LaneCount
}

// LaneAllowed 车辆是否允许使用该车道
// 说明：重型车辆禁止使用最左侧车道（单车道路段除外）
func (n Network) LaneAllowed(agent VehicleAgent, lane int) bool {
	if !n.ValidLane(lane) {
		return false
	}
	return !(agent.IsHeavy() && n.LaneCount > 1 && lane == n.LeftmostLane())
}

// LaneOffset 发布用的横向坐标 d = lane × width
func (n Network) LaneOffset(lane int) float64 {
	return float64(lane) * n.LaneWidth
}

// Contains s是否位于路段内，0 ≤ s ≤ length
func (n Network) Contains(s float64) bool {
	return s >= 0 && s <= n.Length
}
