package seeder

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// Weighted 带权重的取值
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// TrafficMix 交通构成
// 功能：车辆类型与驾驶员画像的抽样权重，以及对应场景的车道策略
// 说明：权重以有序切片保存，保证抽样顺序固定
type TrafficMix struct {
	Name     string
	Vehicles []Weighted[entity.VehicleClass]
	Drivers  []Weighted[entity.DriverProfile]
	Policy   entity.LanePolicy
}

var defaultVehicleWeights = []Weighted[entity.VehicleClass]{
	{entity.Car, 0.65},
	{entity.Van, 0.10},
	{entity.Truck, 0.15},
	{entity.Bus, 0.02},
	{entity.Motorcycle, 0.08},
}

// KeepRightDiscipline 靠右行驶纪律良好的交通构成
var KeepRightDiscipline = TrafficMix{
	Name:     "keep-right",
	Vehicles: defaultVehicleWeights,
	Drivers: []Weighted[entity.DriverProfile]{
		{entity.Normal, 0.60},
		{entity.Speeder, 0.15},
		{entity.LaneChanger, 0.10},
		{entity.Timid, 0.10},
		{entity.Hogger, 0.03},
		{entity.Undertaker, 0.02},
	},
	Policy: entity.KeepRight,
}

// HogUndertake 占道与右侧超车较多的交通构成
var HogUndertake = TrafficMix{
	Name:     "hog",
	Vehicles: defaultVehicleWeights,
	Drivers: []Weighted[entity.DriverProfile]{
		{entity.Normal, 0.35},
		{entity.Speeder, 0.15},
		{entity.LaneChanger, 0.10},
		{entity.Timid, 0.10},
		{entity.Hogger, 0.20},
		{entity.Undertaker, 0.10},
	},
	Policy: entity.UndertakeFriendly,
}

// ParseScenario 按场景名获取交通构成
func ParseScenario(name string) (TrafficMix, error) {
	switch name {
	case KeepRightDiscipline.Name:
		return KeepRightDiscipline, nil
	case HogUndertake.Name:
		return HogUndertake, nil
	}
	return TrafficMix{}, errors.Errorf("unknown traffic scenario %q", name)
}

// Validate 权重非负且总和为正
func (m TrafficMix) Validate() error {
	if err := validateWeights(m.Vehicles); err != nil {
		return errors.Wrapf(err, "mix %s vehicles", m.Name)
	}
	if err := validateWeights(m.Drivers); err != nil {
		return errors.Wrapf(err, "mix %s drivers", m.Name)
	}
	return nil
}

func validateWeights[T any](ws []Weighted[T]) error {
	total := 0.
	for _, w := range ws {
		if w.Weight < 0 {
			return errors.Errorf("negative weight %v for %v", w.Weight, w.Value)
		}
		total += w.Weight
	}
	if total <= 0 {
		return errors.Errorf("weights sum to %v", total)
	}
	return nil
}

func weightsOf[T any](ws []Weighted[T]) []float64 {
	return lo.Map(ws, func(w Weighted[T], _ int) float64 { return w.Weight })
}
