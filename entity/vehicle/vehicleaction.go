package vehicle

// Decision 单步决策结果
// 功能：基于步前状态计算出的新加速度、车道与变道状态机取值
// 说明：全部车辆决策完成后统一应用，保证决策之间互不影响
type Decision struct {
	Vehicle *Runtime

	A                  float64 // 本步加速度
	StayA              float64 // 留在当前车道时的加速度
	TargetLane         int     // 本步结束后所在车道
	PendingTargetLane  int
	LastLaneChangeTime float64
}

// Committed 本步是否完成变道
func (d Decision) Committed() bool {
	return d.TargetLane != d.Vehicle.Lane
}

// apply 写回运行时状态
func (d Decision) apply() {
	v := d.Vehicle
	v.A = d.A
	v.Lane = d.TargetLane
	v.PendingTargetLane = d.PendingTargetLane
	v.LastLaneChangeTime = d.LastLaneChangeTime
}

// revoke 撤销本步变道：留在原车道并保留待定目标，变道时间不变
func (d Decision) revoke() Decision {
	v := d.Vehicle
	d.PendingTargetLane = d.TargetLane
	d.TargetLane = v.Lane
	d.A = d.StayA
	d.LastLaneChangeTime = v.LastLaneChangeTime
	return d
}
