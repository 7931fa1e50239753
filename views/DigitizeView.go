package views

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/GrainArc/GeoGlobe/digitizer"
	"github.com/GrainArc/GeoGlobe/mapsync"
	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/GrainArc/GeoGlobe/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 图形采集与图层同步会话

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 生产环境需要严格检查
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type DigitizeHandler struct {
	geomService *services.GeometryService
}

func NewDigitizeHandler() *DigitizeHandler {
	return &DigitizeHandler{
		geomService: services.NewGeometryService(models.DB),
	}
}

// DigitizeSession 单连接会话：一个采集器加一个图层管理器，无进程级状态
type DigitizeSession struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	nextHandle int64
	previewID  int64
	positions  func() []digitizer.Point

	digitizer   *digitizer.Digitizer
	mapSync     *mapsync.Manager
	geomService *services.GeometryService
}

// ClientMessage 入站指针与控制事件
type ClientMessage struct {
	Action      string    `json:"action"`
	Mode        string    `json:"mode,omitempty"`
	Point       []float64 `json:"point,omitempty"`
	Text        string    `json:"text,omitempty"`
	ID          int64     `json:"id,omitempty"`
	ShapefileID int64     `json:"shapefileId,omitempty"`
	Visible     bool      `json:"visible"`
}

// ServerCommand 出站渲染指令
type ServerCommand struct {
	Type        string                     `json:"type"`
	ID          int64                      `json:"id,omitempty"`
	ShapefileID int64                      `json:"shapefileId,omitempty"`
	Mode        string                     `json:"mode,omitempty"`
	Point       *digitizer.Point           `json:"point,omitempty"`
	Positions   []digitizer.Point          `json:"positions,omitempty"`
	Features    *geojson.FeatureCollection `json:"features,omitempty"`
	Visible     bool                       `json:"visible,omitempty"`
	Message     string                     `json:"message,omitempty"`
}

// InitDigitize 升级WebSocket并启动采集会话
func (h *DigitizeHandler) InitDigitize(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %v", err)
		return
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	session := &DigitizeSession{
		id:          uuid.New().String(),
		conn:        conn,
		ctx:         sessionCtx,
		cancel:      cancel,
		geomService: h.geomService,
	}
	session.digitizer = digitizer.New(session, h.geomService)
	session.mapSync = mapsync.NewManager(session)

	if err := session.send(ServerCommand{Type: "init", Message: "Digitize session ready"}); err != nil {
		log.Printf("Failed to send init response: %v", err)
		conn.Close()
		return
	}

	h.handleSession(session)
}

func (h *DigitizeHandler) handleSession(session *DigitizeSession) {
	defer func() {
		session.cancel()
		session.conn.Close()
		log.Println("Digitize session closed")
	}()

	// 心跳
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-session.ctx.Done():
				return
			case <-pingTicker.C:
				session.mu.Lock()
				err := session.conn.WriteMessage(websocket.PingMessage, nil)
				session.mu.Unlock()
				if err != nil {
					log.Printf("Ping failed: %v", err)
					session.cancel()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-session.ctx.Done():
			return
		default:
		}

		var msg ClientMessage
		if err := session.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		session.dispatch(msg)
	}
}

// dispatch 事件同步派发到状态机/图层管理器
func (s *DigitizeSession) dispatch(msg ClientMessage) {
	switch msg.Action {
	case "refresh":
		s.refreshLayers()
	case "set_visibility":
		s.mapSync.SetVisibility(msg.ShapefileID, msg.Visible)
	case "zoom":
		s.mapSync.ZoomToFeature(msg.ID)
	case "start":
		s.digitizer.StartDrawing(digitizer.Mode(msg.Mode))
	case "click":
		if p, ok := toPoint(msg.Point); ok {
			s.digitizer.PointerClick(p)
			s.refreshPreview()
		}
	case "move":
		if p, ok := toPoint(msg.Point); ok {
			s.digitizer.PointerMove(p)
		}
	case "finish":
		s.digitizer.Finish()
		if s.digitizer.State() == digitizer.StateAwaitingLabel {
			s.send(ServerCommand{Type: "awaiting_label"})
		} else {
			s.send(ServerCommand{Type: "drawing_state", Message: stateName(s.digitizer.State())})
		}
	case "label":
		if err := s.digitizer.ConfirmLabel(msg.Text); err != nil {
			// 空标注等拒绝原因回传，状态保持待标注
			s.send(ServerCommand{Type: "error", Message: err.Error()})
			return
		}
		s.send(ServerCommand{Type: "saved"})
		s.refreshLayers()
	case "cancel":
		s.digitizer.Cancel()
		s.send(ServerCommand{Type: "drawing_state", Message: stateName(s.digitizer.State())})
	default:
		log.Printf("Digitize session: unknown action %q", msg.Action)
	}
}

// refreshLayers 重新拉取全部要素并全量重建图层
func (s *DigitizeSession) refreshLayers() {
	geometries, err := s.geomService.ListGeometries(nil)
	if err != nil {
		log.Printf("Failed to list geometries: %v", err)
		s.send(ServerCommand{Type: "error", Message: err.Error()})
		return
	}
	records := make([]mapsync.Record, 0, len(geometries))
	for _, g := range geometries {
		records = append(records, mapsync.Record{
			ID:          g.ID,
			ShapefileID: g.ShapefileID,
			Label:       g.Label,
			Geometry:    g.Geometry,
		})
	}
	s.mapSync.LoadFeatures(records)
}

// refreshPreview 点序列变化后重新求值实时预览位置并下发
func (s *DigitizeSession) refreshPreview() {
	if s.positions == nil || s.previewID == 0 {
		return
	}
	s.send(ServerCommand{Type: "update_preview", ID: s.previewID, Positions: s.positions()})
}

func (s *DigitizeSession) send(cmd ServerCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(cmd)
}

func toPoint(coords []float64) (digitizer.Point, bool) {
	if len(coords) != 3 {
		return digitizer.Point{}, false
	}
	return digitizer.Point{X: coords[0], Y: coords[1], Z: coords[2]}, true
}

func stateName(state digitizer.State) string {
	switch state {
	case digitizer.StateCollecting:
		return "collecting"
	case digitizer.StateAwaitingLabel:
		return "awaiting_label"
	default:
		return "idle"
	}
}

// ------- digitizer.Surface 实现：渲染指令经WebSocket下发 -------

func (s *DigitizeSession) AddMarker(p digitizer.Point) digitizer.EntityHandle {
	s.nextHandle++
	handle := s.nextHandle
	s.send(ServerCommand{Type: "add_marker", ID: handle, Point: &p})
	return handle
}

func (s *DigitizeSession) MoveMarker(h digitizer.EntityHandle, p digitizer.Point) {
	s.send(ServerCommand{Type: "move_marker", ID: h.(int64), Point: &p})
}

func (s *DigitizeSession) AddPreview(mode digitizer.Mode, positions func() []digitizer.Point) digitizer.EntityHandle {
	s.nextHandle++
	handle := s.nextHandle
	s.previewID = handle
	s.positions = positions
	s.send(ServerCommand{Type: "add_preview", ID: handle, Mode: string(mode), Positions: positions()})
	return handle
}

func (s *DigitizeSession) Remove(h digitizer.EntityHandle) {
	id := h.(int64)
	if id == s.previewID {
		s.previewID = 0
		s.positions = nil
	}
	s.send(ServerCommand{Type: "remove_entity", ID: id})
}

func (s *DigitizeSession) ToLonLat(p digitizer.Point) orb.Point {
	return methods.EcefToLonLat(p.X, p.Y, p.Z)
}

// ------- mapsync.Renderer 实现 -------

type wsEntity struct {
	props mapsync.FeatureProps
}

func (e *wsEntity) Props() mapsync.FeatureProps { return e.props }

type wsLayer struct {
	session     *DigitizeSession
	shapefileID int64
	entities    []mapsync.Entity
}

func (l *wsLayer) SetVisible(visible bool) {
	l.session.send(ServerCommand{Type: "set_layer_visibility", ShapefileID: l.shapefileID, Visible: visible})
}

func (l *wsLayer) Entities() []mapsync.Entity { return l.entities }

// LoadLayer 下发建层指令并异步回调完成结果
func (s *DigitizeSession) LoadLayer(groupID int64, fc *geojson.FeatureCollection, done func(mapsync.Layer, error)) {
	layer := &wsLayer{session: s, shapefileID: groupID}
	for _, feature := range fc.Features {
		id, _ := feature.Properties["id"].(int64)
		label, _ := feature.Properties["label"].(string)
		layer.entities = append(layer.entities, &wsEntity{props: mapsync.FeatureProps{
			ID:          id,
			Label:       label,
			ShapefileID: groupID,
		}})
	}

	err := s.send(ServerCommand{Type: "load_layer", ShapefileID: groupID, Features: fc})
	go done(layer, err)
}

func (s *DigitizeSession) RemoveLayer(layer mapsync.Layer) {
	if l, ok := layer.(*wsLayer); ok {
		s.send(ServerCommand{Type: "remove_layer", ShapefileID: l.shapefileID})
	}
}

func (s *DigitizeSession) FlyToLayer(layer mapsync.Layer) {
	if l, ok := layer.(*wsLayer); ok {
		s.send(ServerCommand{Type: "fly_to_layer", ShapefileID: l.shapefileID})
	}
}

func (s *DigitizeSession) FlyToEntity(entity mapsync.Entity) {
	s.send(ServerCommand{Type: "fly_to", ID: entity.Props().ID})
}
