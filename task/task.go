package task

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/clock"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity/sensor"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/container"
)

const (
	spawnTimeEpsilon = 1e-6 // 生成时间比较容差（秒）
	spawnJamGap      = 2.0  // 生成时与前车的额外安全距离（米）
	statsEpsilon     = 1e-6
	changeEpsilon    = 1e-3 // 增量发布的变化阈值

	MinTimeScale = 0.1
	MaxTimeScale = 10.0
)

// published 同一版本的快照与增量，整体原子替换
type published struct {
	snapshot *entity.Snapshot
	delta    *entity.Delta
}

// Option NewContext的可选参数
type Option func(*Context)

// WithStep 设置时钟（默认步长与总步数）
func WithStep(step config.ControlStep) Option {
	return func(ctx *Context) { ctx.clock = clock.New(step) }
}

// WithStatsInterval 设置统计采样间隔（仿真秒）
// 说明：间隔必须为正数，否则保留默认值1秒
func WithStatsInterval(interval float64) Option {
	return func(ctx *Context) {
		if !(interval > 0) {
			log.Warnf("stats interval must be positive, got %v; keep %v", interval, ctx.statsInterval)
			return
		}
		ctx.statsInterval = interval
	}
}

// WithCommandQueue 设置指令队列容量
// 说明：容量必须为正数，否则保留默认值
func WithCommandQueue(capacity int) Option {
	return func(ctx *Context) {
		if capacity < 1 {
			log.Warnf("command queue capacity must be positive, got %d; keep %d", capacity, ctx.queueCapacity)
			return
		}
		ctx.queueCapacity = capacity
	}
}

// WithTimeScale 设置初始时间倍率
func WithTimeScale(scale float64) Option {
	return func(ctx *Context) { ctx.timeScale = lo.Clamp(scale, MinTimeScale, MaxTimeScale) }
}

// Context 仿真任务上下文（仿真引擎）
// 功能：持有路段、策略、车辆、统计器与发布结果，按步推进仿真
// 说明：
//   - Step只能由单个协程调用，步内不阻塞
//   - Apply可由任意协程调用，指令经线程安全队列在下一步开始时统一取出
//   - Snapshot/DeltaSince/Stats可由任意协程并发读取
type Context struct {
	clock     *clock.Clock
	network   entity.Network
	policy    entity.LanePolicyConfig
	timeScale float64

	queueCapacity int
	commands      *xsync.MPMCQueueOf[entity.Command]
	spawns        *container.PriorityQueue[entity.SpawnVehicle]
	signals       map[string]bool

	vehicleManager *vehicle.Manager
	sensors        *sensor.Sensors

	version       uint64
	statsInterval float64
	nextStatsTime float64
	statsUpdated  bool // 最近一步是否产生了新的统计快照

	current atomic.Pointer[published]
	stats   atomic.Pointer[entity.StatsSnapshot]

	closed atomic.Bool
}

// NewContext 创建仿真引擎
// 参数：network-路段（需已校验），policy-初始车道策略，opts-可选参数
func NewContext(network entity.Network, policy entity.LanePolicyConfig, opts ...Option) *Context {
	ctx := &Context{
		network:       network,
		policy:        policy,
		timeScale:     1,
		queueCapacity: 4096,
		statsInterval: 1,
		spawns:        container.NewPriorityQueue[entity.SpawnVehicle](),
		signals:       make(map[string]bool),
		sensors:       sensor.New(network.LaneCount),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.clock == nil {
		ctx.clock = clock.New(config.ControlStep{Interval: 0.02})
	}
	ctx.commands = xsync.NewMPMCQueueOf[entity.Command](ctx.queueCapacity)
	ctx.vehicleManager = vehicle.NewManager(ctx)
	ctx.nextStatsTime = ctx.statsInterval

	ctx.current.Store(&published{
		snapshot: &entity.Snapshot{Vehicles: []entity.VehicleState{}, Signals: []entity.SignalState{}},
	})
	ctx.stats.Store(&entity.StatsSnapshot{
		LaneMeanSpeed:   make([]float64, network.LaneCount),
		LaneSpeedStdDev: make([]float64, network.LaneCount),
		OccupancyShare:  make([]float64, network.LaneCount),
	})
	return ctx
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Network() entity.Network {
	return ctx.network
}

func (ctx *Context) LanePolicy() entity.LanePolicyConfig {
	return ctx.policy
}

// Time 当前仿真时间（仅主循环协程）
func (ctx *Context) Time() float64 {
	return ctx.clock.T
}

// Version 当前发布版本
func (ctx *Context) Version() uint64 {
	return ctx.current.Load().snapshot.Version
}

// TimeScale 当前时间倍率（仅主循环协程）
func (ctx *Context) TimeScale() float64 {
	return ctx.timeScale
}

// VehicleCount 当前车辆数（仅主循环协程）
func (ctx *Context) VehicleCount() int {
	return ctx.vehicleManager.Len()
}

// Apply 提交指令
// 功能：线程安全地将指令放入队列，在下一步开始时执行
// 返回：队列已满时返回false，指令被丢弃
func (ctx *Context) Apply(cmd entity.Command) bool {
	if cmd == nil {
		return false
	}
	if !ctx.commands.TryEnqueue(cmd) {
		log.Warnf("command queue full, drop %T", cmd)
		return false
	}
	return true
}

// Snapshot 最新发布的完整快照
func (ctx *Context) Snapshot() entity.Snapshot {
	return *ctx.current.Load().snapshot
}

// DeltaSince 相对指定版本的增量
// 返回：version为上一版本时返回最近一次增量；version为当前版本时返回空增量；
// 其他情况返回false，调用方需要重新获取完整快照
func (ctx *Context) DeltaSince(version uint64) (entity.Delta, bool) {
	p := ctx.current.Load()
	if version == p.snapshot.Version {
		return entity.Delta{
			BaseVersion: version,
			Version:     version,
			Upserts:     []entity.VehicleState{},
			Removes:     []int64{},
		}, true
	}
	if p.delta != nil && p.delta.BaseVersion == version {
		return *p.delta, true
	}
	return entity.Delta{}, false
}

// Stats 最近一次统计快照
func (ctx *Context) Stats() entity.StatsSnapshot {
	return *ctx.stats.Load()
}

// Step 推进一步
// 功能：按固定顺序执行一次完整的仿真步
// 参数：dt-步长（秒），负值按0处理
// 算法说明：
// 1. 取出队列中的全部指令，生成指令进入待生成队列
// 2. 处理到期的生成请求（按时间升序，ID重复则丢弃，无间隙则留待下一步）
// 3. 按到达顺序执行其余指令
// 4. 按车道分组，基于步前状态为每辆车决策
// 5. 应用变道与加速度
// 6. 积分速度与位置，移除驶出车辆并记录驶出
// 7. 采样车道速度与占用
// 8. 推进时间与版本，发布快照与增量
// 9. 到达统计时刻时生成统计快照并清空平均量
func (ctx *Context) Step(dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		log.Warnf("negative step %v treated as 0", dt)
		dt = 0
	}
	now := ctx.clock.T
	others := ctx.drainCommands()
	ctx.processSpawns(now)
	ctx.processCommands(others, now)

	vm := ctx.vehicleManager
	decisions := vm.Decide(vm.Buckets())
	if changes := vm.Apply(decisions); changes > 0 {
		log.Debugf("t=%.2f: %d lane changes", now, changes)
	}
	for _, v := range vm.Integrate(dt) {
		ctx.sensors.RegisterExit(v.ID(), now+dt)
	}
	ctx.sensors.Sample(lo.Map(vm.Vehicles(), func(v *vehicle.Runtime, _ int) sensor.LaneSample {
		return sensor.LaneSample{Lane: v.Lane, Speed: v.V}
	}), dt)

	ctx.clock.Advance(dt)
	ctx.version++
	ctx.publish()

	ctx.statsUpdated = false
	if ctx.clock.T+statsEpsilon >= ctx.nextStatsTime {
		s := ctx.sensors.Capture(ctx.clock.T)
		ctx.stats.Store(&s)
		ctx.sensors.ResetAverages()
		for ctx.clock.T+statsEpsilon >= ctx.nextStatsTime {
			ctx.nextStatsTime += ctx.statsInterval
		}
		ctx.statsUpdated = true
	}
}

// drainCommands 取出队列中全部指令
// 返回：除生成指令外的指令，保持到达顺序
func (ctx *Context) drainCommands() []entity.Command {
	var others []entity.Command
	for {
		cmd, ok := ctx.commands.TryDequeue()
		if !ok {
			return others
		}
		if spawn, ok := cmd.(entity.SpawnVehicle); ok {
			ctx.schedule(spawn)
			continue
		}
		others = append(others, cmd)
	}
}

// schedule 加入待生成队列（仅主循环协程）
func (ctx *Context) schedule(spawn entity.SpawnVehicle) {
	ctx.spawns.HeapPush(spawn, spawn.Time)
}

// processSpawns 处理到期的生成请求
func (ctx *Context) processSpawns(now float64) {
	vm := ctx.vehicleManager
	var retry []entity.SpawnVehicle
	for _, spawn := range ctx.spawns.PopUntil(now + spawnTimeEpsilon) {
		agent := spawn.Agent
		if _, ok := vm.Get(agent.ID); ok {
			log.Warnf("spawn: duplicate vehicle id %d ignored", agent.ID)
			continue
		}
		lane, s, ok := ctx.spawnSlot(agent)
		if !ok {
			retry = append(retry, spawn)
			continue
		}
		if r, ok := vm.Add(agent, lane, s, 0); ok {
			ctx.sensors.RegisterEntry(agent.ID, r.EnterTime)
		}
	}
	for _, spawn := range retry {
		ctx.schedule(spawn)
	}
}

// spawnSlot 选择生成位置
// 算法说明：
// 1. 有匝道：在车道0的匝道位置汇入，前后车都需留出车长+2米
// 2. 无匝道：在允许车道中选择起点前方空间最大的车道（相同时取编号小者），起点s=0
// 3. 该车道前车距起点不超过车长+2米时本步不生成
func (ctx *Context) spawnSlot(agent entity.VehicleAgent) (lane int, s float64, ok bool) {
	vm := ctx.vehicleManager
	need := agent.Vehicle.Length + spawnJamGap
	if ramp := ctx.network.OnRampPosition; ramp != nil {
		if !ctx.network.LaneAllowed(agent, 0) {
			return 0, 0, false
		}
		leader, follower := vm.Nearest(0, *ramp)
		if leader != nil && leader.S-*ramp <= need {
			return 0, 0, false
		}
		if follower != nil && *ramp-follower.S <= need {
			return 0, 0, false
		}
		return 0, *ramp, true
	}
	bestLane, bestGap := -1, math.Inf(-1)
	var bestLeader *vehicle.Runtime
	for l := range ctx.network.LaneCount {
		if !ctx.network.LaneAllowed(agent, l) {
			continue
		}
		leader, _ := vm.Nearest(l, 0)
		gap := ctx.network.Length
		if leader != nil {
			gap = leader.S
		}
		if gap > bestGap {
			bestLane, bestGap, bestLeader = l, gap, leader
		}
	}
	if bestLane < 0 || (bestLeader != nil && bestLeader.S <= need) {
		return 0, 0, false
	}
	return bestLane, 0, true
}

// processCommands 按到达顺序执行非生成指令
func (ctx *Context) processCommands(cmds []entity.Command, now float64) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case entity.DespawnVehicle:
			if _, ok := ctx.vehicleManager.Remove(c.ID); ok {
				ctx.sensors.RegisterExit(c.ID, now)
			} else {
				log.Warnf("despawn: unknown vehicle id %d", c.ID)
			}
		case entity.SetSignal:
			ctx.signals[c.ID] = c.Active
		case entity.SetLanePolicy:
			ctx.policy = c.Config
			log.Infof("lane policy set to %v", c.Config.Policy)
		case entity.SetTimeScale:
			if math.IsNaN(c.Scale) {
				log.Warnf("time scale NaN ignored")
				continue
			}
			ctx.timeScale = lo.Clamp(c.Scale, MinTimeScale, MaxTimeScale)
		default:
			log.Warnf("unsupported command %T ignored", cmd)
		}
	}
}

// publish 生成并发布当前版本的快照与相对上一版本的增量
func (ctx *Context) publish() {
	prev := ctx.current.Load().snapshot
	vehicles := lo.Map(ctx.vehicleManager.Vehicles(), func(v *vehicle.Runtime, _ int) entity.VehicleState {
		return v.State(ctx.network)
	})
	ids := make([]string, 0, len(ctx.signals))
	for id := range ctx.signals {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	signals := lo.Map(ids, func(id string, _ int) entity.SignalState {
		return entity.SignalState{ID: id, IsActive: ctx.signals[id]}
	})
	snap := &entity.Snapshot{
		Version:  ctx.version,
		Time:     ctx.clock.T,
		Vehicles: vehicles,
		Signals:  signals,
	}
	delta := diff(prev, snap)
	ctx.current.Store(&published{snapshot: snap, delta: &delta})
}

// diff 计算两个快照之间的增量
// 说明：两侧车辆均按ID升序，归并遍历
func diff(prev, next *entity.Snapshot) entity.Delta {
	d := entity.Delta{
		BaseVersion: prev.Version,
		Version:     next.Version,
		Upserts:     []entity.VehicleState{},
		Removes:     []int64{},
	}
	i, j := 0, 0
	for i < len(prev.Vehicles) || j < len(next.Vehicles) {
		switch {
		case j == len(next.Vehicles) || (i < len(prev.Vehicles) && prev.Vehicles[i].ID < next.Vehicles[j].ID):
			d.Removes = append(d.Removes, prev.Vehicles[i].ID)
			i++
		case i == len(prev.Vehicles) || next.Vehicles[j].ID < prev.Vehicles[i].ID:
			d.Upserts = append(d.Upserts, next.Vehicles[j])
			j++
		default:
			if changed(prev.Vehicles[i], next.Vehicles[j]) {
				d.Upserts = append(d.Upserts, next.Vehicles[j])
			}
			i++
			j++
		}
	}
	return d
}

func changed(a, b entity.VehicleState) bool {
	return math.Abs(a.S-b.S) > changeEpsilon ||
		math.Abs(a.D-b.D) > changeEpsilon ||
		math.Abs(a.Velocity-b.Velocity) > changeEpsilon ||
		a.LaneIndex != b.LaneIndex
}

// Close 停止主循环
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}
