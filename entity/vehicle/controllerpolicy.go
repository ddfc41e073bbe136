package vehicle

import (
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// overtakeMargin 前车比本车慢超过该值（米/秒）时视为正在超车
const overtakeMargin = 0.5

// MobilIncentive MOBIL效用
// 功能：本车加速度收益减去礼让系数加权的后车损失
// 参数：gain-本车加速度变化（变道后-不变道），followerTargetLoss-目标车道后车损失，
// followerCurrentLoss-当前车道后车损失，politeness-礼让系数
// 说明：符号约定 loss = a_before - a_after，即后车在本车变道前的加速度减去变道后的加速度。
// 后车被迫减速时损失为正，效用降低；后车因本车离开而可以加速时损失为负，效用升高。
// 两项损失在加权前直接相加
func MobilIncentive(gain, followerTargetLoss, followerCurrentLoss, politeness float64) float64 {
	return gain - politeness*(followerTargetLoss+followerCurrentLoss)
}

// PolicyUtility 车道策略带来的额外效用
// 参数：policy-策略，agent-本车，currentLane/candidateLane-当前与候选车道，speed-本车速度，
// currentLeader/candidateLeader-当前与候选车道前车（可为nil）
// 算法说明：
// 1. 超车判定：当前车道有前车且前车速度+0.5小于本车速度
// 2. 靠右策略或驾驶员靠右偏好、向右变道且未在超车：+KeepRightBonus
// 3. 同样条件下向左变道：-LeftPenalty
// 4. 占道策略下向右变道：-KeepRightBonus
// 5. 右超友好策略或驾驶员有右超偏好、向右变道且候选车道前车更快：+UndertakeBonus+RightPassBias，
// 无前车时按本车最高车速计
func PolicyUtility(
	policy entity.LanePolicyConfig, agent entity.VehicleAgent,
	currentLane, candidateLane int, speed float64,
	currentLeader, candidateLeader *Runtime,
) float64 {
	movingRight := candidateLane < currentLane
	movingLeft := candidateLane > currentLane
	overtaking := currentLeader != nil && currentLeader.V+overtakeMargin < speed

	u := 0.
	if (policy.Policy == entity.KeepRight || agent.Driver.KeepRightBias) && !overtaking {
		if movingRight {
			u += policy.KeepRightBonus
		} else if movingLeft {
			u -= policy.LeftPenalty
		}
	}
	if policy.Policy == entity.Hogging && movingRight {
		u -= policy.KeepRightBonus
	}
	if (policy.Policy == entity.UndertakeFriendly || agent.Driver.RightPassBias > 0) && movingRight {
		currentLeaderV := agent.Vehicle.MaxSpeed
		if currentLeader != nil {
			currentLeaderV = currentLeader.V
		}
		candidateLeaderV := agent.Vehicle.MaxSpeed
		if candidateLeader != nil {
			candidateLeaderV = candidateLeader.V
		}
		if candidateLeaderV > currentLeaderV {
			u += policy.UndertakeBonus + agent.Driver.RightPassBias
		}
	}
	return u
}
