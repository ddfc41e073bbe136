package entity

// VehicleState 对外发布的车辆状态
type VehicleState struct {
	ID            int64         `json:"id"`
	S             float64       `json:"s"`
	D             float64       `json:"d"`
	Yaw           float64       `json:"yaw"`
	Velocity      float64       `json:"velocity"`
	LaneIndex     int           `json:"laneIndex"`
	VehicleClass  VehicleClass  `json:"vehicleClass"`
	DriverProfile DriverProfile `json:"driverProfile"`
}

// SignalState 信号状态
type SignalState struct {
	ID       string `json:"id"`
	IsActive bool   `json:"isActive"`
}

// Snapshot 某一版本的完整世界状态，发布后不可修改
// 说明：车辆按ID升序，信号按ID升序
type Snapshot struct {
	Version  uint64         `json:"version"`
	Time     float64        `json:"time"`
	Vehicles []VehicleState `json:"vehicles"`
	Signals  []SignalState  `json:"signals"`
}

// Delta 相邻两个版本之间的变化
type Delta struct {
	BaseVersion uint64         `json:"baseVersion"`
	Version     uint64         `json:"version"`
	Upserts     []VehicleState `json:"upserts"`
	Removes     []int64        `json:"removes"`
}

// Empty 是否不包含任何变化
func (d Delta) Empty() bool {
	return len(d.Upserts) == 0 && len(d.Removes) == 0
}

// StatsSnapshot 统计快照
// 说明：各切片长度等于车道数
type StatsSnapshot struct {
	Time                 float64   `json:"time" bson:"time"`
	LaneMeanSpeed        []float64 `json:"laneMeanSpeed" bson:"lane_mean_speed"`
	LaneSpeedStdDev      []float64 `json:"laneSpeedStdDev" bson:"lane_speed_std_dev"`
	OccupancyShare       []float64 `json:"occupancyShare" bson:"occupancy_share"`
	ThroughputVehPerHour float64   `json:"throughputVehPerHour" bson:"throughput_veh_per_hour"`
	TravelTimeP50        float64   `json:"travelTimeP50" bson:"travel_time_p50"`
	TravelTimeP95        float64   `json:"travelTimeP95" bson:"travel_time_p95"`
}
