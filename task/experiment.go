package task

import (
	"context"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/seeder"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

// experimentSnapshotInterval 实验中每隔多少步保存一次快照
const experimentSnapshotInterval = 25

// ExperimentResult 单个场景的实验结果
type ExperimentResult struct {
	Scenario  string
	Snapshots []entity.Snapshot
	Stats     []entity.StatsSnapshot
}

// MeanThroughput 统计快照的平均流量（辆/小时）
func (r ExperimentResult) MeanThroughput() float64 {
	if len(r.Stats) == 0 {
		return 0
	}
	return lo.SumBy(r.Stats, func(s entity.StatsSnapshot) float64 { return s.ThroughputVehPerHour }) / float64(len(r.Stats))
}

// collector 收集快照与统计的发布接收方
type collector struct {
	result *ExperimentResult
}

func (c collector) PublishSnapshot(s entity.Snapshot)   { c.result.Snapshots = append(c.result.Snapshots, s) }
func (c collector) PublishDelta(entity.Delta)           {}
func (c collector) PublishStats(s entity.StatsSnapshot) { c.result.Stats = append(c.result.Stats, s) }

// RunExperiment 靠右行驶与占道两种场景的对比实验
// 功能：以相同路段、需求与种子分别运行两个场景，不控制节奏
// 参数：network-路段，duration-仿真时长（秒），dt-步长，demand-到达率（辆/小时），seed-随机种子
// 返回：按[keep-right, hog]顺序的结果
func RunExperiment(c context.Context, network entity.Network, duration, dt, demand float64, seed uint64) ([]ExperimentResult, error) {
	steps := int32(math.Round(duration / dt))
	results := make([]ExperimentResult, 0, 2)
	for _, mix := range []seeder.TrafficMix{seeder.KeepRightDiscipline, seeder.HogUndertake} {
		source, err := seeder.New(demand, seed, mix)
		if err != nil {
			return nil, err
		}
		ctx := NewContext(network, entity.DefaultLanePolicy(mix.Policy),
			WithStep(config.ControlStep{Total: steps, Interval: dt}))
		result := ExperimentResult{Scenario: mix.Name}
		if err := ctx.Run(c, RunOptions{
			Source:           source,
			Publisher:        collector{result: &result},
			SnapshotInterval: experimentSnapshotInterval,
		}); err != nil {
			return nil, err
		}
		log.Infof("experiment %s: %d snapshots, mean throughput %.0f veh/h",
			mix.Name, len(result.Snapshots), result.MeanThroughput())
		results = append(results, result)
	}
	return results, nil
}
