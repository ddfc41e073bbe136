package entity

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// LanePolicy 车道使用策略
type LanePolicy int

const (
	KeepRight         LanePolicy = iota // 靠右行驶，左侧车道只用于超车
	Hogging                             // 占道行驶
	UndertakeFriendly                   // 允许并鼓励右侧超车
)

var lanePolicyNames = map[LanePolicy]string{
	KeepRight:         "keep-right",
	Hogging:           "hog",
	UndertakeFriendly: "undertake",
}

func (p LanePolicy) String() string {
	if name, ok := lanePolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("LanePolicy(%d)", int(p))
}

// ParseLanePolicy 解析策略名称
// 说明：接受keep-right/hog/undertake及其全称
func ParseLanePolicy(name string) (LanePolicy, error) {
	switch strings.ToLower(name) {
	case "keep-right", "keepright":
		return KeepRight, nil
	case "hog", "hogging":
		return Hogging, nil
	case "undertake", "undertakefriendly", "undertake-friendly":
		return UndertakeFriendly, nil
	}
	return 0, errors.Errorf("unknown lane policy %q", name)
}

// LanePolicyConfig 车道策略及其参数
type LanePolicyConfig struct {
	Policy               LanePolicy
	SafetyDecelThreshold float64 // 目标车道后车可接受的最大减速度（正值）
	KeepRightBonus       float64
	LeftPenalty          float64
	UndertakeBonus       float64
}

// DefaultLanePolicy 各策略的默认参数
func DefaultLanePolicy(p LanePolicy) LanePolicyConfig {
	switch p {
	case Hogging:
		return LanePolicyConfig{Policy: Hogging, SafetyDecelThreshold: 3.0, KeepRightBonus: 0.05, LeftPenalty: 0.05}
	case UndertakeFriendly:
		return LanePolicyConfig{Policy: UndertakeFriendly, SafetyDecelThreshold: 3.5, KeepRightBonus: 0.1, LeftPenalty: 0.05, UndertakeBonus: 0.3}
	default:
		return LanePolicyConfig{Policy: KeepRight, SafetyDecelThreshold: 4.0, KeepRightBonus: 0.2, LeftPenalty: 0.2}
	}
}
