package config

// Network 道路配置
// 功能：描述单条直线多车道高速路段
// 说明：车道0为最右侧车道，编号向左递增
type Network struct {
	Lanes      int      `yaml:"lanes"`             // 车道数
	LaneWidth  float64  `yaml:"lane_width"`        // 车道宽度（米）
	Length     float64  `yaml:"length"`            // 路段长度（米）
	SpeedLimit float64  `yaml:"speed_limit"`       // 限速（米/秒）
	OnRamp     *float64 `yaml:"on_ramp,omitempty"` // 匝道汇入位置（米），为空则车辆从起点进入
}

// ControlStep 指定模拟器模拟步数和间隔的配置项
type ControlStep struct {
	Total    int32   `yaml:"total"`    // 总步数，0表示不限
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
// 功能：定义仿真推进、发布与统计节奏
type Control struct {
	Step             ControlStep `yaml:"step"`
	SnapshotInterval int         `yaml:"snapshot_interval"` // 每隔多少步发布一次全量快照，其余步发布增量
	StatsInterval    float64     `yaml:"stats_interval"`    // 统计采样间隔（仿真秒）
	TimeScale        float64     `yaml:"time_scale"`        // 初始时间倍率
}

// Traffic 交通需求配置
type Traffic struct {
	Scenario string  `yaml:"scenario"` // 场景：keep-right 或 hog
	Demand   float64 `yaml:"demand"`   // 到达率（辆/小时）
	Seed     uint64  `yaml:"seed"`     // 随机种子
}

// Policy 车道策略覆盖项
// 说明：未配置时使用场景默认策略
type Policy struct {
	Kind                 string  `yaml:"kind"` // keep-right / hog / undertake
	SafetyDecelThreshold float64 `yaml:"safety_decel_threshold"`
	KeepRightBonus       float64 `yaml:"keep_right_bonus"`
	LeftPenalty          float64 `yaml:"left_penalty"`
	UndertakeBonus       float64 `yaml:"undertake_bonus"`
}

// Server 对外服务配置
type Server struct {
	Listen       string `yaml:"listen"`        // HTTP/WebSocket监听地址，为空则不启动服务
	CommandQueue int    `yaml:"command_queue"` // 指令队列容量
}

// Output 统计输出配置
// 说明：URI为空时统计结果只写日志
type Output struct {
	URI string `yaml:"uri"` // MongoDB连接字符串
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// Config YAML配置文件的根结构
type Config struct {
	Network Network `yaml:"network"`
	Control Control `yaml:"control"`
	Traffic Traffic `yaml:"traffic"`
	Policy  *Policy `yaml:"policy,omitempty"`
	Server  Server  `yaml:"server"`
	Output  Output  `yaml:"output"`
}
