package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 256
	maxMessageSize = 16 * 1024
)

// Engine Hub依赖的仿真引擎能力
type Engine interface {
	Apply(cmd entity.Command) bool
	Snapshot() entity.Snapshot
}

// client 单个WebSocket连接
// 说明：所有写操作由writer协程完成，send关闭后writer退出并关闭连接
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue 非阻塞地放入发送队列
// 返回：队列已满或已关闭时返回false
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub WebSocket连接管理与广播
// 功能：新连接先收到当前快照，之后接收广播的快照、增量与统计；客户端上行的指令解析后提交给引擎
type Hub struct {
	engine   Engine
	metrics  *Metrics
	upgrader websocket.Upgrader
	clients  *xsync.MapOf[uuid.UUID, *client]
}

// NewHub 创建Hub
// 参数：engine-仿真引擎，metrics-指标（可为空）
func NewHub(engine Engine, metrics *Metrics) *Hub {
	return &Hub{
		engine:  engine,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: xsync.NewMapOf[uuid.UUID, *client](),
	}
}

// Len 当前连接数
func (h *Hub) Len() int {
	return h.clients.Size()
}

// ServeHTTP 升级为WebSocket连接
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if data, err := encode(TypeSnapshot, h.engine.Snapshot()); err == nil {
		c.send <- data
	}
	h.clients.Store(c.id, c)
	h.updateClients()
	log.Infof("client %s connected from %s", c.id, r.RemoteAddr)
	go h.writer(c)
	go h.reader(c)
}

// remove 断开并移除连接
func (h *Hub) remove(c *client) {
	if _, ok := h.clients.LoadAndDelete(c.id); ok {
		c.close()
		h.updateClients()
		log.Infof("client %s disconnected", c.id)
	}
}

func (h *Hub) updateClients() {
	if h.metrics != nil {
		h.metrics.Clients.Set(float64(h.clients.Size()))
	}
}

func (h *Hub) writer(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debugf("write to %s: %v", c.id, err)
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
}

func (h *Hub) reader(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := ParseCommand(data)
		if err != nil {
			log.Warnf("client %s: %v", c.id, err)
			if h.metrics != nil {
				h.metrics.CommandsInvalid.Inc()
			}
			continue
		}
		accepted := h.engine.Apply(cmd)
		if h.metrics == nil {
			continue
		}
		if accepted {
			h.metrics.CommandsReceived.WithLabelValues(commandType(cmd)).Inc()
		} else {
			h.metrics.CommandsDropped.Inc()
		}
	}
}

// broadcast 向全部连接发送同一消息，发送队列已满的连接被断开
func (h *Hub) broadcast(msgType string, payload any) {
	if h.clients.Size() == 0 {
		return
	}
	data, err := encode(msgType, payload)
	if err != nil {
		log.Errorf("encode %s: %v", msgType, err)
		return
	}
	h.clients.Range(func(_ uuid.UUID, c *client) bool {
		if !c.enqueue(data) {
			log.Warnf("client %s too slow, disconnect", c.id)
			h.remove(c)
		}
		return true
	})
}

// Close 断开全部连接
func (h *Hub) Close() {
	h.clients.Range(func(_ uuid.UUID, c *client) bool {
		h.remove(c)
		return true
	})
}

func (h *Hub) PublishSnapshot(s entity.Snapshot) {
	if h.metrics != nil {
		h.metrics.Version.Set(float64(s.Version))
		h.metrics.Vehicles.Set(float64(len(s.Vehicles)))
	}
	h.broadcast(TypeSnapshot, s)
}

func (h *Hub) PublishDelta(d entity.Delta) {
	if h.metrics != nil {
		h.metrics.Version.Set(float64(d.Version))
	}
	h.broadcast(TypeDelta, d)
}

func (h *Hub) PublishStats(s entity.StatsSnapshot) {
	if h.metrics != nil {
		h.metrics.Throughput.Set(s.ThroughputVehPerHour)
		h.metrics.TravelTime.WithLabelValues("0.5").Set(s.TravelTimeP50)
		h.metrics.TravelTime.WithLabelValues("0.95").Set(s.TravelTimeP95)
	}
	h.broadcast(TypeStats, s)
}

func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Payload: payload})
}
