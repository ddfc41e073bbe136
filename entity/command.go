package entity

// Command 外部指令
// 说明：封闭集合，仅本包内定义的类型实现该接口
type Command interface {
	isCommand()
}

// SpawnVehicle 在指定仿真时刻生成车辆
type SpawnVehicle struct {
	Time  float64
	Agent VehicleAgent
}

// DespawnVehicle 移除车辆
type DespawnVehicle struct {
	ID int64
}

// SetSignal 设置信号状态
type SetSignal struct {
	ID     string
	Active bool
}

// SetLanePolicy 替换车道策略，下一步生效
type SetLanePolicy struct {
	Config LanePolicyConfig
}

// SetTimeScale 设置宿主循环的时间倍率
type SetTimeScale struct {
	Scale float64
}

func (SpawnVehicle) isCommand()   {}
func (DespawnVehicle) isCommand() {}
func (SetSignal) isCommand()      {}
func (SetLanePolicy) isCommand()  {}
func (SetTimeScale) isCommand()   {}
