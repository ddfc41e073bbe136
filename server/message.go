package server

import (
	"encoding/json"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

// 下行消息类型
const (
	TypeSnapshot = "snapshot"
	TypeDelta    = "delta"
	TypeStats    = "stats"
)

// 上行指令类型
const (
	CmdSpawnVehicle   = "spawnVehicle"
	CmdDespawnVehicle = "despawnVehicle"
	CmdSetSignal      = "setSignal"
	CmdSetLanePolicy  = "setLanePolicy"
	CmdSetTimeScale   = "setTimeScale"
)

// FirstGeneratedID 未指定ID的生成指令从该值开始分配，避开生成器使用的ID区间
const FirstGeneratedID int64 = 1_000_000_000

var generatedIDs atomic.Int64

func nextGeneratedID() int64 {
	return FirstGeneratedID + generatedIDs.Add(1) - 1
}

// Envelope 下行消息信封
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// commandMessage 上行指令，各字段按type取用
type commandMessage struct {
	Type          string   `json:"type"`
	VehicleClass  string   `json:"vehicleClass"`
	DriverProfile string   `json:"driverProfile"`
	ID            *int64   `json:"id"`
	VehicleID     *int64   `json:"vehicleId"`
	SignalID      *string  `json:"signalId"`
	Active        *bool    `json:"active"`
	Policy        string   `json:"policy"`
	Scale         *float64 `json:"scale"`
}

// ParseCommand 解析客户端指令
// 功能：将JSON文本转换为引擎指令
// 返回：格式错误、类型未知、缺少必需字段或名称无法识别时返回错误
// 说明：生成指令的时间为0，即在下一步立即生成；未指定id时自动分配
func ParseCommand(data []byte) (entity.Command, error) {
	var m commandMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode command")
	}
	switch m.Type {
	case CmdSpawnVehicle:
		class, err := entity.ParseVehicleClass(m.VehicleClass)
		if err != nil {
			return nil, errors.Wrap(err, CmdSpawnVehicle)
		}
		profile, err := entity.ParseDriverProfile(m.DriverProfile)
		if err != nil {
			return nil, errors.Wrap(err, CmdSpawnVehicle)
		}
		var id int64
		if m.ID != nil {
			id = *m.ID
		} else {
			id = nextGeneratedID()
		}
		return entity.SpawnVehicle{Time: 0, Agent: entity.NewVehicleAgent(id, class, profile)}, nil
	case CmdDespawnVehicle:
		if m.VehicleID == nil {
			return nil, errors.Errorf("%s: missing vehicleId", m.Type)
		}
		return entity.DespawnVehicle{ID: *m.VehicleID}, nil
	case CmdSetSignal:
		if m.SignalID == nil || m.Active == nil {
			return nil, errors.Errorf("%s: missing signalId or active", m.Type)
		}
		return entity.SetSignal{ID: *m.SignalID, Active: *m.Active}, nil
	case CmdSetLanePolicy:
		policy, err := entity.ParseLanePolicy(m.Policy)
		if err != nil {
			return nil, errors.Wrap(err, CmdSetLanePolicy)
		}
		return entity.SetLanePolicy{Config: entity.DefaultLanePolicy(policy)}, nil
	case CmdSetTimeScale:
		if m.Scale == nil {
			return nil, errors.Errorf("%s: missing scale", m.Type)
		}
		return entity.SetTimeScale{Scale: *m.Scale}, nil
	}
	return nil, errors.Errorf("unknown command type %q", m.Type)
}

// commandType 指令对应的上行类型名
func commandType(cmd entity.Command) string {
	switch cmd.(type) {
	case entity.SpawnVehicle:
		return CmdSpawnVehicle
	case entity.DespawnVehicle:
		return CmdDespawnVehicle
	case entity.SetSignal:
		return CmdSetSignal
	case entity.SetLanePolicy:
		return CmdSetLanePolicy
	case entity.SetTimeScale:
		return CmdSetTimeScale
	}
	return "unknown"
}
