package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/output"
	"github.com/tsinghua-fib-lab/agentsociety-highway/seeder"
	"github.com/tsinghua-fib-lab/agentsociety-highway/server"
	"github.com/tsinghua-fib-lab/agentsociety-highway/task"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path (empty means built-in defaults)")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 对比实验模式：依次运行keep-right与hog场景后退出
	experiment         = flag.Bool("experiment", false, "run the keep-right vs hog experiment and exit")
	experimentDuration = flag.Float64("experiment.duration", 600, "simulated seconds per experiment scenario")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "highway")
)

// loadConfig 读取配置，未指定时使用默认配置
func loadConfig() config.Config {
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Info("no config specified, use defaults")
		return config.Default()
	}
	c, err := config.Load(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}
	return c
}

// lanePolicy 场景默认策略，配置了policy时按其覆盖（参数为0表示沿用默认值）
func lanePolicy(p *config.Policy, scenario entity.LanePolicy) entity.LanePolicyConfig {
	if p == nil {
		return entity.DefaultLanePolicy(scenario)
	}
	kind, err := entity.ParseLanePolicy(p.Kind)
	if err != nil {
		log.Panicf("policy: %v", err)
	}
	res := entity.DefaultLanePolicy(kind)
	if p.SafetyDecelThreshold != 0 {
		res.SafetyDecelThreshold = p.SafetyDecelThreshold
	}
	if p.KeepRightBonus != 0 {
		res.KeepRightBonus = p.KeepRightBonus
	}
	if p.LeftPenalty != 0 {
		res.LeftPenalty = p.LeftPenalty
	}
	if p.UndertakeBonus != 0 {
		res.UndertakeBonus = p.UndertakeBonus
	}
	return res
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	c := loadConfig()
	log.Infof("%+v", c)

	network, err := entity.NewNetwork(c.Network)
	if err != nil {
		log.Panicf("network: %v", err)
	}
	mix, err := seeder.ParseScenario(c.Traffic.Scenario)
	if err != nil {
		log.Panicf("traffic: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *experiment {
		results, err := task.RunExperiment(ctx, network, *experimentDuration, c.Control.Step.Interval, c.Traffic.Demand, c.Traffic.Seed)
		if err != nil {
			log.Panicf("experiment: %v", err)
		}
		for _, r := range results {
			last := entity.StatsSnapshot{}
			if len(r.Stats) > 0 {
				last = r.Stats[len(r.Stats)-1]
			}
			log.Infof("%s: mean throughput %.0f veh/h, final p50=%.1fs p95=%.1fs, lane speeds %.1f",
				r.Scenario, r.MeanThroughput(), last.TravelTimeP50, last.TravelTimeP95, last.LaneMeanSpeed)
		}
		return
	}

	source, err := seeder.New(c.Traffic.Demand, c.Traffic.Seed, mix)
	if err != nil {
		log.Panicf("traffic: %v", err)
	}
	engine := task.NewContext(
		network,
		lanePolicy(c.Policy, mix.Policy),
		task.WithStep(c.Control.Step),
		task.WithStatsInterval(c.Control.StatsInterval),
		task.WithCommandQueue(c.Server.CommandQueue),
		task.WithTimeScale(c.Control.TimeScale),
	)

	run := uuid.NewString()
	recorder, err := output.New(ctx, c.Output, run)
	if err != nil {
		log.Panicf("output: %v", err)
	}
	defer recorder.Close(context.Background())

	opts := task.RunOptions{
		Source:           source,
		Recorder:         recorder,
		SnapshotInterval: c.Control.SnapshotInterval,
		Paced:            true,
	}
	var wg sync.WaitGroup
	if c.Server.Listen != "" {
		metrics := server.NewMetrics()
		hub := server.NewHub(engine, metrics)
		opts.Publisher = hub
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(ctx, c.Server.Listen, hub, metrics); err != nil {
				log.Errorf("server: %v", err)
				stop()
			}
		}()
	}

	log.Infof("run %s: scenario %s, %d lanes, demand %.0f veh/h", run, mix.Name, network.LaneCount, c.Traffic.Demand)
	if err := engine.Run(ctx, opts); err != nil {
		log.Errorf("engine: %v", err)
	}
	stop()
	wg.Wait()
}
