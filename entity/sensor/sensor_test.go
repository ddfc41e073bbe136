package sensor_test

import (
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity/sensor"
)

func TestLaneSpeedStatistics(t *testing.T) {
	s := sensor.New(2)
	s.Sample([]sensor.LaneSample{{Lane: 0, Speed: 10}, {Lane: 0, Speed: 20}, {Lane: 1, Speed: 30}}, 1)
	snap := s.Capture(1)

	assert.InDelta(t, 15, snap.LaneMeanSpeed[0], 1e-12)
	assert.InDelta(t, 30, snap.LaneMeanSpeed[1], 1e-12)
	assert.Positive(t, snap.LaneSpeedStdDev[0])
	want, err := stats.StandardDeviationSample(stats.Float64Data{10, 20})
	require.NoError(t, err)
	assert.InDelta(t, want, snap.LaneSpeedStdDev[0], 1e-9)
	assert.Equal(t, 0.0, snap.LaneSpeedStdDev[1])
}

func TestWelfordMatchesBatch(t *testing.T) {
	data := stats.Float64Data{31.2, 28.4, 29.9, 33.1, 25.0, 30.7, 27.3, 32.8}
	s := sensor.New(1)
	for _, x := range data {
		s.Sample([]sensor.LaneSample{{Lane: 0, Speed: x}}, 0.1)
	}
	snap := s.Capture(1)
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationSample(data)
	assert.InDelta(t, mean, snap.LaneMeanSpeed[0], 1e-9)
	assert.InDelta(t, sd, snap.LaneSpeedStdDev[0], 1e-9)
}

func TestOccupancyShare(t *testing.T) {
	s := sensor.New(3)
	assert.Equal(t, []float64{0, 0, 0}, s.Capture(0).OccupancyShare)

	s.Sample([]sensor.LaneSample{{Lane: 0, Speed: 1}, {Lane: 0, Speed: 1}, {Lane: 1, Speed: 1}}, 0.5)
	snap := s.Capture(1)
	assert.InDelta(t, 2.0/3, snap.OccupancyShare[0], 1e-12)
	assert.InDelta(t, 1.0/3, snap.OccupancyShare[1], 1e-12)
	assert.Equal(t, 0.0, snap.OccupancyShare[2])

	s.ResetAverages()
	snap = s.Capture(2)
	assert.Equal(t, []float64{0, 0, 0}, snap.OccupancyShare)
	assert.Equal(t, []float64{0, 0, 0}, snap.LaneMeanSpeed)
}

func TestThroughputWindow(t *testing.T) {
	s := sensor.New(1)
	s.RegisterEntry(1, 0)
	s.RegisterExit(1, 10)
	snap := s.Capture(10)
	assert.InDelta(t, 60, snap.ThroughputVehPerHour, 1e-9)
	assert.InDelta(t, 10, snap.TravelTimeP50, 1e-12)
	assert.InDelta(t, 10, snap.TravelTimeP95, 1e-12)

	// 没有进入记录的驶出只计入流量
	s.RegisterExit(2, 30)
	assert.InDelta(t, 120, s.Capture(30).ThroughputVehPerHour, 1e-9)

	// 10秒处的记录在71秒时已过期
	s.RegisterExit(3, 71)
	assert.InDelta(t, 120, s.Capture(71).ThroughputVehPerHour, 1e-9)
	assert.InDelta(t, 0, s.Capture(200).ThroughputVehPerHour, 1e-9)
	// 窗口清理不影响行程时间
	assert.InDelta(t, 10, s.Capture(200).TravelTimeP50, 1e-12)
}

func TestTravelTimePercentiles(t *testing.T) {
	s := sensor.New(1)
	for i := 1; i <= 5; i++ {
		s.RegisterEntry(int64(i), 0)
	}
	for _, i := range []int{4, 1, 5, 3, 2} {
		s.RegisterExit(int64(i), float64(i))
	}
	snap := s.Capture(5)
	assert.InDelta(t, 3, snap.TravelTimeP50, 1e-12)
	assert.InDelta(t, 4.8, snap.TravelTimeP95, 1e-12)
}

func TestTravelTimeWindowIsBounded(t *testing.T) {
	s := sensor.New(1)
	for i := range sensor.TravelTimeWindow + 100 {
		id := int64(i)
		s.RegisterEntry(id, 0)
		// 前100次驶出的行程时间远大于其余
		tt := 1.0
		if i < 100 {
			tt = 1000
		}
		s.RegisterExit(id, tt)
	}
	snap := s.Capture(1000)
	assert.InDelta(t, 1, snap.TravelTimeP95, 1e-12)
}

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, sensor.Percentile(nil, 50))
	assert.Equal(t, 7.0, sensor.Percentile([]float64{7}, 95))
}
