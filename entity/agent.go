package entity

import "fmt"

// VehicleAgent 车辆智能体的静态描述
// 功能：身份、类型与参数，创建后不再变化
// 说明：参数默认来自目录，也可以在创建后整体替换（测试中常用）
type VehicleAgent struct {
	ID      int64
	Class   VehicleClass
	Profile DriverProfile
	Vehicle VehicleParams
	Driver  DriverParams
}

// NewVehicleAgent 按目录参数创建车辆智能体
func NewVehicleAgent(id int64, class VehicleClass, profile DriverProfile) VehicleAgent {
	return VehicleAgent{
		ID:      id,
		Class:   class,
		Profile: profile,
		Vehicle: LookupVehicle(class),
		Driver:  LookupDriver(profile),
	}
}

// IsHeavy 是否为重型车辆
func (a VehicleAgent) IsHeavy() bool {
	return a.Class.IsHeavy()
}

func (a VehicleAgent) String() string {
	return fmt.Sprintf("Vehicle{id=%d, %v, %v}", a.ID, a.Class, a.Profile)
}
