package vehicle

import "math"

// GapQuery 目标车道间隙检查的输入
// 说明：目标车道不存在前车时LeaderS取+Inf，不存在后车时FollowerS取-Inf
type GapQuery struct {
	MyS, MyV             float64
	LeaderS, LeaderV     float64
	FollowerS, FollowerV float64

	MinFrontGap, MinRearGap float64
	MinFrontTTC, MinRearTTC float64
}

// TimeToCollision 碰撞时间
// 参数：gap-间距（米），closingSpeed-接近速度（米/秒）
// 返回：closingSpeed>0时为gap/closingSpeed，否则为+Inf
func TimeToCollision(gap, closingSpeed float64) float64 {
	if closingSpeed > 0 {
		return gap / closingSpeed
	}
	return math.Inf(1)
}

// AcceptsGap 目标车道间隙是否可以接受
// 功能：前后间距与前后碰撞时间四项同时满足阈值
// 算法说明：
// 1. 前间距 = max(0, 前车位置 - 本车位置)，后间距 = max(0, 本车位置 - 后车位置)
// 2. 前碰撞时间的接近速度 = max(0, 本车速度 - 前车速度)
// 3. 后碰撞时间的接近速度 = max(0, 后车速度 - 本车速度)
func AcceptsGap(q GapQuery) bool {
	frontGap := math.Max(0, q.LeaderS-q.MyS)
	rearGap := math.Max(0, q.MyS-q.FollowerS)
	frontTTC := TimeToCollision(frontGap, math.Max(0, q.MyV-q.LeaderV))
	rearTTC := TimeToCollision(rearGap, math.Max(0, q.FollowerV-q.MyV))
	return frontGap >= q.MinFrontGap &&
		rearGap >= q.MinRearGap &&
		frontTTC >= q.MinFrontTTC &&
		rearTTC >= q.MinRearTTC
}

// newGapQuery 以驾驶员阈值构造间隙检查输入
// 参数：leader、follower-目标车道前车与后车，可为nil
func newGapQuery(v, leader, follower *Runtime) GapQuery {
	drv := v.Agent.Driver
	q := GapQuery{
		MyS: v.S, MyV: v.V,
		LeaderS: math.Inf(1), FollowerS: math.Inf(-1),
		MinFrontGap: drv.MinFrontGap, MinRearGap: drv.MinRearGap,
		MinFrontTTC: drv.MinFrontTTC, MinRearTTC: drv.MinRearTTC,
	}
	if leader != nil {
		q.LeaderS, q.LeaderV = leader.S, leader.V
	}
	if follower != nil {
		q.FollowerS, q.FollowerV = follower.S, follower.V
	}
	return q
}
