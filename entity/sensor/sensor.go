package sensor

import (
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/container"
)

const (
	ThroughputWindow = 60.0 // 流量统计窗口（秒）
	TravelTimeWindow = 256  // 行程时间窗口（最近N次驶出）
)

// LaneSample 单车采样
type LaneSample struct {
	Lane  int
	Speed float64
}

// welford 在线均值与方差
type welford struct {
	n    int64
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// stdDev 样本标准差，样本数不超过1时为0
func (w *welford) stdDev() float64 {
	if w.n <= 1 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// Sensors 路段统计器
// 功能：分车道速度均值与标准差、车道占用比例、窗口流量、行程时间分位数
// 说明：只由仿真主循环调用，非线程安全
type Sensors struct {
	laneCount int
	speed     []welford
	laneTime  []float64 // 各车道累计占用时间（车·秒）

	entryTimes  map[int64]float64
	exitTimes   []float64 // 窗口内的驶出时间，升序
	travelTimes *container.Ring[float64]
}

// New 创建统计器
func New(laneCount int) *Sensors {
	return &Sensors{
		laneCount:   laneCount,
		speed:       make([]welford, laneCount),
		laneTime:    make([]float64, laneCount),
		entryTimes:  make(map[int64]float64),
		travelTimes: container.NewRing[float64](TravelTimeWindow),
	}
}

// RegisterEntry 记录车辆进入时间
func (s *Sensors) RegisterEntry(id int64, t float64) {
	s.entryTimes[id] = t
}

// RegisterExit 记录车辆驶出
// 功能：有进入记录时追加行程时间；驶出时间计入流量窗口并清理过期记录
func (s *Sensors) RegisterExit(id int64, t float64) {
	if enter, ok := s.entryTimes[id]; ok {
		s.travelTimes.Push(math.Max(0, t-enter))
		delete(s.entryTimes, id)
	}
	s.exitTimes = append(s.exitTimes, t)
	s.prune(t)
}

// prune 丢弃早于now-窗口的驶出记录
func (s *Sensors) prune(now float64) {
	threshold := now - ThroughputWindow
	i := 0
	for i < len(s.exitTimes) && s.exitTimes[i] < threshold {
		i++
	}
	s.exitTimes = s.exitTimes[i:]
}

// Sample 采样车辆速度与车道占用
// 参数：samples-各车的(车道, 速度)，dt-本步时长
// 说明：速度按样本计入均值方差；占用时间按dt加权
func (s *Sensors) Sample(samples []LaneSample, dt float64) {
	for _, x := range samples {
		if x.Lane < 0 || x.Lane >= s.laneCount {
			continue
		}
		s.speed[x.Lane].add(x.Speed)
		s.laneTime[x.Lane] += dt
	}
}

// Capture 生成统计快照
// 参数：t-当前仿真时间
// 算法说明：
// 1. 流量 = 窗口内驶出数 / 60 × 3600
// 2. 占用比例 = 各车道占用时间 / 总占用时间，总量为0时全为0
// 3. 分位数：行程时间升序，index = p/100 × (n-1)，相邻两值线性插值
func (s *Sensors) Capture(t float64) entity.StatsSnapshot {
	s.prune(t)
	total := lo.Sum(s.laneTime)
	occupancy := make([]float64, s.laneCount)
	if total > 0 {
		for i, x := range s.laneTime {
			occupancy[i] = x / total
		}
	}
	travel := s.travelTimes.Values()
	slices.Sort(travel)
	return entity.StatsSnapshot{
		Time:                 t,
		LaneMeanSpeed:        lo.Map(s.speed, func(w welford, _ int) float64 { return w.mean }),
		LaneSpeedStdDev:      lo.Map(s.speed, func(w welford, _ int) float64 { return w.stdDev() }),
		OccupancyShare:       occupancy,
		ThroughputVehPerHour: float64(len(s.exitTimes)) / ThroughputWindow * 3600,
		TravelTimeP50:        Percentile(travel, 50),
		TravelTimeP95:        Percentile(travel, 95),
	}
}

// ResetAverages 清空速度与占用累计量
// 说明：流量窗口与行程时间窗口不受影响
func (s *Sensors) ResetAverages() {
	clear(s.speed)
	clear(s.laneTime)
}

// Percentile 已排序数据的线性插值分位数
// 参数：sorted-升序数据，p-百分位（0~100）
// 返回：空数据时为0
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(index-float64(lower))
}
