package entity

import (
	"github.com/tsinghua-fib-lab/agentsociety-highway/clock"
)

// ITaskContext 仿真任务上下文的依赖倒置
// 说明：车辆管理器通过该接口读取时钟、路段与当前策略
type ITaskContext interface {
	Clock() *clock.Clock
	Network() Network
	LanePolicy() LanePolicyConfig
}
