package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Default 默认配置
// 功能：返回与演示宿主程序一致的默认参数
// 返回：3车道、3.7米车宽、5公里、33.33米/秒限速，dt=0.02秒，每5步一次快照
func Default() Config {
	return Config{
		Network: Network{
			Lanes:      3,
			LaneWidth:  3.7,
			Length:     5000,
			SpeedLimit: 33.33,
		},
		Control: Control{
			Step:             ControlStep{Interval: 0.02},
			SnapshotInterval: 5,
			StatsInterval:    1,
			TimeScale:        1,
		},
		Traffic: Traffic{
			Scenario: "keep-right",
			Demand:   1800,
			Seed:     20251003,
		},
		Server: Server{
			Listen:       ":8080",
			CommandQueue: 4096,
		},
		Output: Output{
			DB:  "highway",
			Col: "stats",
		},
	}
}

// Load 解析YAML配置
// 功能：在默认配置的基础上覆盖文件中给出的字段，并校验
// 参数：data-YAML文本
// 返回：配置与错误
// 说明：使用UnmarshalStrict，未知字段视为错误
func Load(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "config: bad yaml")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 校验配置取值范围
func (c Config) Validate() error {
	n := c.Network
	if n.Lanes < 1 {
		return errors.Errorf("config: network.lanes must be >= 1, got %d", n.Lanes)
	}
	if n.LaneWidth <= 0 || n.Length <= 0 || n.SpeedLimit <= 0 {
		return errors.Errorf("config: network lane_width/length/speed_limit must be positive, got %+v", n)
	}
	if n.OnRamp != nil && (*n.OnRamp < 0 || *n.OnRamp >= n.Length) {
		return errors.Errorf("config: network.on_ramp %v out of [0, %v)", *n.OnRamp, n.Length)
	}
	if c.Control.Step.Interval <= 0 {
		return errors.Errorf("config: control.step.interval must be positive, got %v", c.Control.Step.Interval)
	}
	if c.Control.Step.Total < 0 {
		return errors.Errorf("config: control.step.total must be >= 0, got %v", c.Control.Step.Total)
	}
	if c.Control.SnapshotInterval < 1 {
		return errors.Errorf("config: control.snapshot_interval must be >= 1, got %v", c.Control.SnapshotInterval)
	}
	if c.Control.StatsInterval <= 0 {
		return errors.Errorf("config: control.stats_interval must be positive, got %v", c.Control.StatsInterval)
	}
	if c.Control.TimeScale <= 0 {
		return errors.Errorf("config: control.time_scale must be positive, got %v", c.Control.TimeScale)
	}
	if c.Traffic.Demand < 0 {
		return errors.Errorf("config: traffic.demand must be >= 0, got %v", c.Traffic.Demand)
	}
	if c.Server.CommandQueue < 1 {
		return errors.Errorf("config: server.command_queue must be >= 1, got %v", c.Server.CommandQueue)
	}
	return nil
}
