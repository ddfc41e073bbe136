package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

// Clock 仿真时钟
// 功能：记录仿真时间与步数
// 说明：步长DT为宿主循环的默认步长，单步推进可以使用任意非负步长
type Clock struct {
	DT       float64 // 默认步长（秒）
	END_STEP int32   // 结束步，0表示不限

	T            float64 // 当前时间（秒）
	InternalStep int32   // 已执行的步数
}

// New 根据配置创建新的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:       stepConfig.Interval,
		END_STEP: stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置时钟状态
func (c *Clock) Init() {
	c.InternalStep = 0
	c.T = 0
}

// Advance 推进时钟
// 功能：时间增加dt，步数加一
// 参数：dt-本步时间间隔（秒）
// 说明：时间采用累加方式，保证与逐步积分的位置一致
func (c *Clock) Advance(dt float64) {
	c.T += dt
	c.InternalStep++
}

// Finished 是否已到达结束步
func (c *Clock) Finished() bool {
	return c.END_STEP > 0 && c.InternalStep >= c.END_STEP
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为HH:MM:SS
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
