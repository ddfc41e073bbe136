package entity

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// VehicleClass 车辆类型（封闭枚举）
type VehicleClass int

const (
	Car VehicleClass = iota
	Van
	Truck
	Bus
	Motorcycle

	vehicleClassCount
)

// VehicleClasses 全部车辆类型，顺序固定
var VehicleClasses = [vehicleClassCount]VehicleClass{Car, Van, Truck, Bus, Motorcycle}

var vehicleClassNames = [vehicleClassCount]string{"Car", "Van", "Truck", "Bus", "Motorcycle"}

func (c VehicleClass) String() string {
	if c < 0 || c >= vehicleClassCount {
		return fmt.Sprintf("VehicleClass(%d)", int(c))
	}
	return vehicleClassNames[c]
}

// IsHeavy 重型车辆（货车、大巴）不允许使用最左侧车道
func (c VehicleClass) IsHeavy() bool {
	return c == Truck || c == Bus
}

// ParseVehicleClass 从名称解析车辆类型（大小写不敏感）
func ParseVehicleClass(name string) (VehicleClass, error) {
	for i, n := range vehicleClassNames {
		if strings.EqualFold(n, name) {
			return VehicleClass(i), nil
		}
	}
	return 0, errors.Errorf("unknown vehicle class %q", name)
}

// DriverProfile 驾驶员画像（封闭枚举）
type DriverProfile int

const (
	Normal DriverProfile = iota
	Speeder
	LaneChanger
	Undertaker
	Hogger
	Timid

	driverProfileCount
)

// DriverProfiles 全部驾驶员画像，顺序固定
var DriverProfiles = [driverProfileCount]DriverProfile{Normal, Speeder, LaneChanger, Undertaker, Hogger, Timid}

var driverProfileNames = [driverProfileCount]string{"Normal", "Speeder", "LaneChanger", "Undertaker", "Hogger", "Timid"}

func (p DriverProfile) String() string {
	if p < 0 || p >= driverProfileCount {
		return fmt.Sprintf("DriverProfile(%d)", int(p))
	}
	return driverProfileNames[p]
}

// ParseDriverProfile 从名称解析驾驶员画像（大小写不敏感）
func ParseDriverProfile(name string) (DriverProfile, error) {
	for i, n := range driverProfileNames {
		if strings.EqualFold(n, name) {
			return DriverProfile(i), nil
		}
	}
	return 0, errors.Errorf("unknown driver profile %q", name)
}

// VehicleParams 车辆物理参数
type VehicleParams struct {
	Length       float64 // 车长（米）
	MaxAccel     float64 // 最大加速度（米/秒²）
	ComfortDecel float64 // 舒适减速度（米/秒²，正值）
	MaxSpeed     float64 // 最高车速（米/秒）
}

// DriverParams 驾驶员行为参数
type DriverParams struct {
	DesiredSpeedFactor  float64 // 期望速度相对限速的倍数
	Headway             float64 // 期望车头时距（秒）
	Politeness          float64 // MOBIL礼让系数
	LaneChangeThreshold float64 // 变道效用阈值（米/秒²）
	KeepRightBias       bool    // 是否倾向靠右行驶
	RightPassBias       float64 // 右侧超车偏好

	LaneChangeCooldown float64 // 两次变道的最小间隔（秒）
	MinFrontGap        float64 // 目标车道前车最小间距（米）
	MinRearGap         float64 // 目标车道后车最小间距（米）
	MinFrontTTC        float64 // 目标车道前车最小碰撞时间（秒）
	MinRearTTC         float64 // 目标车道后车最小碰撞时间（秒）
	EnterThreshold     float64 // 进入待定变道状态的效用阈值
	ExitThreshold      float64 // 取消待定变道的效用阈值
}

var vehicleCatalog = [vehicleClassCount]VehicleParams{
	Car:        {Length: 4.5, MaxAccel: 2.6, ComfortDecel: 3.5, MaxSpeed: 55},
	Van:        {Length: 5.2, MaxAccel: 2.2, ComfortDecel: 3.0, MaxSpeed: 50},
	Truck:      {Length: 12.0, MaxAccel: 1.2, ComfortDecel: 2.0, MaxSpeed: 38},
	Bus:        {Length: 13.5, MaxAccel: 1.4, ComfortDecel: 2.2, MaxSpeed: 42},
	Motorcycle: {Length: 2.2, MaxAccel: 4.5, ComfortDecel: 4.0, MaxSpeed: 65},
}

var driverCatalog = [driverProfileCount]DriverParams{
	Normal: {
		DesiredSpeedFactor: 1.00, Headway: 1.2, Politeness: 0.3, LaneChangeThreshold: 0.10, KeepRightBias: true,
		LaneChangeCooldown: 3.0, MinFrontGap: 6, MinRearGap: 6, MinFrontTTC: 2.0, MinRearTTC: 2.5,
		EnterThreshold: 0.05, ExitThreshold: 0.02,
	},
	Speeder: {
		DesiredSpeedFactor: 1.15, Headway: 1.1, Politeness: 0.2, LaneChangeThreshold: 0.10, KeepRightBias: true,
		LaneChangeCooldown: 2.0, MinFrontGap: 4, MinRearGap: 5, MinFrontTTC: 1.5, MinRearTTC: 2.0,
		EnterThreshold: 0.05, ExitThreshold: 0.02,
	},
	LaneChanger: {
		DesiredSpeedFactor: 1.05, Headway: 1.0, Politeness: 0.15, LaneChangeThreshold: 0.05, KeepRightBias: true,
		LaneChangeCooldown: 1.5, MinFrontGap: 4, MinRearGap: 4, MinFrontTTC: 1.2, MinRearTTC: 1.5,
		EnterThreshold: 0.03, ExitThreshold: 0.01,
	},
	Undertaker: {
		DesiredSpeedFactor: 1.05, Headway: 1.1, Politeness: 0.2, LaneChangeThreshold: 0.10, RightPassBias: 0.6,
		LaneChangeCooldown: 2.0, MinFrontGap: 4, MinRearGap: 5, MinFrontTTC: 1.5, MinRearTTC: 2.0,
		EnterThreshold: 0.05, ExitThreshold: 0.02,
	},
	Hogger: {
		DesiredSpeedFactor: 1.02, Headway: 1.3, Politeness: 0.4, LaneChangeThreshold: 0.40,
		LaneChangeCooldown: 5.0, MinFrontGap: 6, MinRearGap: 8, MinFrontTTC: 2.0, MinRearTTC: 3.0,
		EnterThreshold: 0.10, ExitThreshold: 0.05,
	},
	Timid: {
		DesiredSpeedFactor: 0.95, Headway: 1.8, Politeness: 0.5, LaneChangeThreshold: 0.35, KeepRightBias: true,
		LaneChangeCooldown: 5.0, MinFrontGap: 10, MinRearGap: 12, MinFrontTTC: 3.0, MinRearTTC: 4.0,
		EnterThreshold: 0.10, ExitThreshold: 0.05,
	},
}

// LookupVehicle 查询车辆类型的物理参数
// 说明：对合法枚举值是全函数；非法值panic
func LookupVehicle(c VehicleClass) VehicleParams {
	return vehicleCatalog[c]
}

// LookupDriver 查询驾驶员画像的行为参数
// 说明：对合法枚举值是全函数；非法值panic
func LookupDriver(p DriverProfile) DriverParams {
	return driverCatalog[p]
}

func (c VehicleClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *VehicleClass) UnmarshalText(text []byte) (err error) {
	*c, err = ParseVehicleClass(string(text))
	return
}

func (p DriverProfile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DriverProfile) UnmarshalText(text []byte) (err error) {
	*p, err = ParseDriverProfile(string(text))
	return
}
