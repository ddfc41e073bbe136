package vehicle

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

const (
	idmTheta        = 4    // IDM速度指数
	idmJamGap       = 2    // 静止安全距离（米），与车长一起构成最小间距
	idmSqrtEpsilon  = 1e-3 // 防止sqrt(a*b)为0
	idmMinDesiredS  = 0.5  // 期望间距下限（米）
	idmMinGap       = 1.0  // 参与计算的实际间距下限（米）
	minDesiredSpeed = 1e-3 // 期望速度下限（米/秒）
)

// Leader 前车相对信息
type Leader struct {
	Gap           float64 // 净间距：前车位置 - 本车位置 - 前车车长（米）
	RelativeSpeed float64 // 本车速度 - 前车速度（米/秒）
}

// DesiredSpeed 期望速度
// 功能：min(限速×期望速度倍数, 最高车速)，下限1e-3
func DesiredSpeed(agent entity.VehicleAgent, speedLimit float64) float64 {
	v0 := math.Min(speedLimit*agent.Driver.DesiredSpeedFactor, agent.Vehicle.MaxSpeed)
	return math.Max(v0, minDesiredSpeed)
}

// Acceleration 智能驾驶模型(IDM)加速度
// 功能：计算车辆在给定速度与前车关系下的纵向加速度
// 参数：agent-车辆，speed-当前速度，speedLimit-限速，leader-前车信息（nil表示前方无车）
// 返回：加速度（米/秒²），位于[-舒适减速度, 最大加速度]
// 算法说明：
// 1. 自由流：a = maxA × (1 - (v/v0)^4)
// 2. 有前车：s* = 车长 + 2 + v·T + v·Δv/(2·sqrt(a·b + 1e-3))，下限0.5；实际间距下限1.0
// 3. a = maxA × (1 - (v/v0)^4 - (s*/s)^2)
// 4. 限制在[-b, maxA]
func Acceleration(agent entity.VehicleAgent, speed, speedLimit float64, leader *Leader) float64 {
	maxA := agent.Vehicle.MaxAccel
	b := agent.Vehicle.ComfortDecel
	v0 := DesiredSpeed(agent, speedLimit)
	free := 1 - math.Pow(speed/v0, idmTheta)
	if leader == nil {
		return lo.Clamp(maxA*free, -b, maxA)
	}
	// https://en.wikipedia.org/wiki/Intelligent_driver_model
	sStar := agent.Vehicle.Length + idmJamGap + speed*agent.Driver.Headway +
		speed*leader.RelativeSpeed/(2*math.Sqrt(maxA*b+idmSqrtEpsilon))
	sStar = math.Max(sStar, idmMinDesiredS)
	gap := math.Max(leader.Gap, idmMinGap)
	acc := maxA * (free - math.Pow(sStar/gap, 2))
	return lo.Clamp(acc, -b, maxA)
}

// leaderOf 计算follower相对leader的前车信息
// 说明：任一方不存在时返回nil
func leaderOf(follower, leader *Runtime) *Leader {
	if follower == nil || leader == nil {
		return nil
	}
	return &Leader{
		Gap:           leader.S - follower.S - leader.Agent.Vehicle.Length,
		RelativeSpeed: follower.V - leader.V,
	}
}

// accelBehind 计算follower跟随leader时的加速度
func accelBehind(follower, leader *Runtime, speedLimit float64) float64 {
	return Acceleration(follower.Agent, follower.V, speedLimit, leaderOf(follower, leader))
}
