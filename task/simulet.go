package task

import (
	"context"
	"flag"
	"time"

	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/seeder"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 500, "心跳日志间隔步数")
)

// Publisher 发布结果的接收方（如WebSocket广播）
type Publisher interface {
	PublishSnapshot(s entity.Snapshot)
	PublishDelta(d entity.Delta)
	PublishStats(s entity.StatsSnapshot)
}

// StatsRecorder 统计结果的持久化
type StatsRecorder interface {
	Record(ctx context.Context, s entity.StatsSnapshot) error
}

// SpawnSource 车辆生成序列
type SpawnSource interface {
	Next() seeder.SpawnEvent
}

// RunOptions 宿主循环参数
type RunOptions struct {
	Source           SpawnSource   // 生成序列，可为空
	Publisher        Publisher     // 发布接收方，可为空
	Recorder         StatsRecorder // 统计持久化，可为空
	SnapshotInterval int           // 每隔多少步发布一次完整快照，其余步发布增量
	Paced            bool          // 是否按墙钟时间×时间倍率控制节奏
}

// prepare 把下一步时间窗口内到期的生成事件放入待生成队列
// 返回：尚未到期的下一个事件
func (ctx *Context) prepare(source SpawnSource, next seeder.SpawnEvent) seeder.SpawnEvent {
	for next.Time <= ctx.clock.T+ctx.clock.DT {
		ctx.schedule(next.Command())
		next = source.Next()
	}
	return next
}

// update 执行一步并发布结果
func (ctx *Context) update(c context.Context, opts RunOptions) {
	ctx.Step(ctx.clock.DT)
	step := ctx.clock.InternalStep

	if n := int32(*heartBeatInterval); n > 0 && step%n == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		stats := ctx.Stats()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) vehicles=%d throughput=%.0f/h p50=%.1fs p95=%.1fs",
			step, hour, minute, second,
			ctx.VehicleCount(), stats.ThroughputVehPerHour, stats.TravelTimeP50, stats.TravelTimeP95,
		)
	}

	if p := opts.Publisher; p != nil {
		if opts.SnapshotInterval <= 1 || int(step)%opts.SnapshotInterval == 0 {
			p.PublishSnapshot(ctx.Snapshot())
		} else if d, ok := ctx.DeltaSince(ctx.Version() - 1); ok && !d.Empty() {
			p.PublishDelta(d)
		}
	}
	if ctx.statsUpdated {
		stats := ctx.Stats()
		if opts.Publisher != nil {
			opts.Publisher.PublishStats(stats)
		}
		if opts.Recorder != nil {
			if err := opts.Recorder.Record(c, stats); err != nil {
				log.Warnf("record stats at t=%.1f: %v", stats.Time, err)
			}
		}
	}
}

// Run 宿主主循环
// 功能：喂入生成事件、按节奏推进仿真、发布结果，直到到达结束步、Close或上下文取消
// 参数：c-取消上下文，opts-循环参数
// 算法说明：
// 1. 每步前把生成时间不晚于T+dt的事件放入待生成队列
// 2. 按节奏运行时，累计墙钟预算 dt/时间倍率，提前则休眠至预算时刻；落后时不休眠
// 3. 取消只在两步之间检查
func (ctx *Context) Run(c context.Context, opts RunOptions) error {
	var next seeder.SpawnEvent
	if opts.Source != nil {
		next = opts.Source.Next()
	}
	start := time.Now()
	var budget time.Duration
	for !ctx.clock.Finished() && !ctx.closed.Load() {
		if err := c.Err(); err != nil {
			break
		}
		if opts.Source != nil {
			next = ctx.prepare(opts.Source, next)
		}
		if opts.Paced {
			budget += time.Duration(ctx.clock.DT / ctx.timeScale * float64(time.Second))
			if wait := time.Until(start.Add(budget)); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-c.Done():
					timer.Stop()
					continue
				case <-timer.C:
				}
			}
		}
		ctx.update(c, opts)
	}
	log.Infof("engine complete at %v, step %d", ctx.clock, ctx.clock.InternalStep)
	return nil
}
