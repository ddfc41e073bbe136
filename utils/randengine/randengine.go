// 随机数引擎，包装了golang.org/x/exp/rand，提供交通生成所需的随机数方法
package randengine

import (
	"flag"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

const (
	// 均匀随机数的截断范围，避免对数发散
	uniformLow  = 1e-6
	uniformHigh = 1 - 1e-6
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成

	log = logrus.WithField("module", "randengine")
)

// Engine 随机数引擎
// 功能：提供确定性的随机数生成，相同种子产生相同序列
// 说明：非线程安全，每个使用者持有独立的引擎
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// DiscreteDistribution 按给定权重生成随机索引
// 功能：根据权重数组生成离散分布的随机数
// 参数：weight-权重数组，每个元素表示对应索引的概率权重
// 返回：随机生成的索引值（0到len(weight)-1）
// 算法说明：
// 1. 计算总权重
// 2. 在[0, 总权重)范围内生成随机数
// 3. 累积权重直到超过随机数，返回该索引
// 说明：权重顺序决定结果，调用方需保证权重数组顺序固定
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	log.Panicf("randengine: DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}

// Exponential 按指数分布生成随机数
// 功能：逆变换采样 dt = -ln(1-u)/lambda
// 参数：lambda-速率参数（必须为正）
// 返回：指数分布随机数
// 说明：u截断到[1e-6, 1-1e-6]，结果有限且为正
func (e *Engine) Exponential(lambda float64) float64 {
	u := math.Min(math.Max(e.Float64(), uniformLow), uniformHigh)
	return -math.Log(1-u) / lambda
}
