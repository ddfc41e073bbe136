package output

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Recorder 统计快照的持久化
type Recorder interface {
	Record(ctx context.Context, s entity.StatsSnapshot) error
	Close(ctx context.Context) error
}

// New 按配置创建Recorder
// 说明：URI为空时只写日志
func New(ctx context.Context, c config.Output, run string) (Recorder, error) {
	if c.URI == "" {
		return &LogRecorder{}, nil
	}
	return NewMongoRecorder(ctx, c, run)
}

// LogRecorder 把统计快照写入日志
type LogRecorder struct{}

func (r *LogRecorder) Record(_ context.Context, s entity.StatsSnapshot) error {
	log.Infof(
		"t=%.1f throughput=%.0f/h p50=%.1fs p95=%.1fs lane_speed=%.1f occupancy=%.2f",
		s.Time, s.ThroughputVehPerHour, s.TravelTimeP50, s.TravelTimeP95, s.LaneMeanSpeed, s.OccupancyShare,
	)
	return nil
}

func (r *LogRecorder) Close(context.Context) error {
	return nil
}

// statsDocument MongoDB中的统计文档
type statsDocument struct {
	Run                  string `bson:"run"`
	entity.StatsSnapshot `bson:",inline"`
}

// MongoRecorder 把统计快照逐条写入MongoDB集合
type MongoRecorder struct {
	client *mongo.Client
	coll   *mongo.Collection
	run    string
}

// NewMongoRecorder 连接MongoDB
// 参数：c-输出配置，run-本次运行的标识，写入每条文档
// 返回：连接失败或无法访问时返回错误
func NewMongoRecorder(ctx context.Context, c config.Output, run string) (*MongoRecorder, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	log.Infof("recording stats to %s.%s (run %s)", c.DB, c.Col, run)
	return &MongoRecorder{
		client: client,
		coll:   client.Database(c.DB).Collection(c.Col),
		run:    run,
	}, nil
}

func (r *MongoRecorder) Record(ctx context.Context, s entity.StatsSnapshot) error {
	if _, err := r.coll.InsertOne(ctx, newStatsDocument(r.run, s)); err != nil {
		return errors.Wrapf(err, "insert stats t=%v", s.Time)
	}
	return nil
}

func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func newStatsDocument(run string, s entity.StatsSnapshot) statsDocument {
	return statsDocument{Run: run, StatsSnapshot: s}
}
