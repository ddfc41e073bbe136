package seeder

import (
	"iter"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/randengine"
)

// SpawnEvent 车辆生成事件
type SpawnEvent struct {
	Time  float64
	Agent entity.VehicleAgent
}

// Command 转换为生成指令
func (e SpawnEvent) Command() entity.SpawnVehicle {
	return entity.SpawnVehicle{Time: e.Time, Agent: e.Agent}
}

// Seeder 泊松到达的交通生成器
// 功能：按到达率与交通构成生成时间严格递增、ID从1递增的车辆
// 说明：相同参数与种子产生完全相同的序列
type Seeder struct {
	seed    uint64
	lambda  float64 // 到达率（辆/秒）
	mix     TrafficMix
	vehicle []float64
	driver  []float64

	rng    *randengine.Engine
	time   float64
	nextID int64
}

// New 创建交通生成器
// 参数：vehiclesPerHour-到达率（辆/小时），seed-随机种子，mix-交通构成
// 说明：到达率下限为1e-6辆/秒
func New(vehiclesPerHour float64, seed uint64, mix TrafficMix) (*Seeder, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	s := &Seeder{
		seed:    seed,
		lambda:  math.Max(vehiclesPerHour/3600, 1e-6),
		mix:     mix,
		vehicle: weightsOf(mix.Vehicles),
		driver:  weightsOf(mix.Drivers),
	}
	s.Reset()
	return s, nil
}

// Reset 从头重新开始生成
func (s *Seeder) Reset() {
	s.rng = randengine.New(s.seed)
	s.time = 0
	s.nextID = 1
}

// Mix 交通构成
func (s *Seeder) Mix() TrafficMix {
	return s.mix
}

// Next 生成下一辆车
// 算法说明：
// 1. 间隔 dt = -ln(1-u)/lambda，u截断到[1e-6, 1-1e-6]
// 2. 按权重抽取车辆类型，再抽取驾驶员画像
func (s *Seeder) Next() SpawnEvent {
	s.time += s.rng.Exponential(s.lambda)
	class := s.mix.Vehicles[s.rng.DiscreteDistribution(s.vehicle)].Value
	profile := s.mix.Drivers[s.rng.DiscreteDistribution(s.driver)].Value
	e := SpawnEvent{
		Time:  s.time,
		Agent: entity.NewVehicleAgent(s.nextID, class, profile),
	}
	s.nextID++
	return e
}

// Events 无限事件序列
// 说明：每次遍历都从头开始，不影响Next的状态
func (s *Seeder) Events() iter.Seq[SpawnEvent] {
	return func(yield func(SpawnEvent) bool) {
		g := &Seeder{seed: s.seed, lambda: s.lambda, mix: s.mix, vehicle: s.vehicle, driver: s.driver}
		g.Reset()
		for {
			if !yield(g.Next()) {
				return
			}
		}
	}
}
