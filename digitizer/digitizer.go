// Package digitizer 交互式图形采集状态机
// 由离散指针事件同步驱动：Idle -> Collecting -> AwaitingLabel -> Idle
package digitizer

import (
	"fmt"
	"log"
	"strings"

	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/paulmach/orb"
)

type Mode string

const (
	ModePolygon  Mode = "polygon"
	ModePolyline Mode = "polyline"
)

type State int

const (
	StateIdle State = iota
	StateCollecting
	StateAwaitingLabel
)

// Point 地图空间坐标(ECEF)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type EntityHandle interface{}

// Surface 渲染/拾取面抽象，由具体渲染会话实现
type Surface interface {
	// AddMarker 创建跟随鼠标的临时标记点
	AddMarker(p Point) EntityHandle
	MoveMarker(h EntityHandle, p Point)
	// AddPreview 创建实时预览图形，positions在每次重绘时重新求值
	AddPreview(mode Mode, positions func() []Point) EntityHandle
	Remove(h EntityHandle)
	// ToLonLat 地图空间坐标投影为经纬度
	ToLonLat(p Point) orb.Point
}

// ShapeSaver 图形持久化出口，由GeometryService满足
type ShapeSaver interface {
	CreateDrawnShape(label string, geometryText string) (*models.Geometry, error)
}

// Digitizer 单会话采集器，事件同步派发，不做内部加锁
type Digitizer struct {
	surface Surface
	saver   ShapeSaver

	state   State
	mode    Mode
	points  []Point
	marker  EntityHandle
	preview EntityHandle
	pending orb.Geometry
}

func New(surface Surface, saver ShapeSaver) *Digitizer {
	return &Digitizer{surface: surface, saver: saver}
}

func (d *Digitizer) State() State {
	return d.state
}

func (d *Digitizer) Mode() Mode {
	return d.mode
}

// Points 当前已采集点序列的副本
func (d *Digitizer) Points() []Point {
	out := make([]Point, len(d.points))
	copy(out, d.points)
	return out
}

// PendingGeometry 待确认标注的几何
func (d *Digitizer) PendingGeometry() orb.Geometry {
	return d.pending
}

// StartDrawing 开始采集。同模式重复调用为空操作，
// 换模式丢弃已采集点重新开始，待标注状态下视为先取消再开始
func (d *Digitizer) StartDrawing(mode Mode) {
	if mode != ModePolygon && mode != ModePolyline {
		log.Printf("Digitizer: unsupported drawing mode %q", mode)
		return
	}
	switch d.state {
	case StateCollecting:
		if d.mode == mode {
			return
		}
		d.clearTransient()
		d.points = nil
	case StateAwaitingLabel:
		d.Cancel()
	}
	d.mode = mode
	d.state = StateCollecting
	d.points = nil
}

// PointerClick 追加采集点，首次点击同时创建临时标记和实时预览
func (d *Digitizer) PointerClick(p Point) {
	if d.state != StateCollecting {
		return
	}
	if len(d.points) == 0 {
		d.marker = d.surface.AddMarker(p)
		d.preview = d.surface.AddPreview(d.mode, d.livePositions)
	}
	d.points = append(d.points, p)
}

// PointerMove 只移动临时标记，不改动已采集点
func (d *Digitizer) PointerMove(p Point) {
	if d.state != StateCollecting || d.marker == nil {
		return
	}
	d.surface.MoveMarker(d.marker, p)
}

// livePositions 预览图形的实时位置回调，始终反映当前点序列
func (d *Digitizer) livePositions() []Point {
	out := make([]Point, len(d.points))
	copy(out, d.points)
	return out
}

// Finish 结束采集(右键或双击触发)
// 少于2个点时忽略；polygon模式少于3个点视为失败回到Idle
func (d *Digitizer) Finish() {
	if d.state != StateCollecting || len(d.points) < 2 {
		return
	}

	d.clearTransient()

	switch d.mode {
	case ModePolygon:
		if len(d.points) < 3 {
			log.Printf("Digitizer: polygon needs at least 3 points, got %d", len(d.points))
			d.reset()
			return
		}
		ring := make(orb.Ring, 0, len(d.points)+1)
		for _, p := range d.points {
			ring = append(ring, d.surface.ToLonLat(p))
		}
		// 首尾不重合时闭合环
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		d.pending = orb.Polygon{ring}
	default:
		line := make(orb.LineString, 0, len(d.points))
		for _, p := range d.points {
			line = append(line, d.surface.ToLonLat(p))
		}
		d.pending = line
	}

	d.points = nil
	d.state = StateAwaitingLabel
}

// ConfirmLabel 提交标注并持久化。空标注被拒绝且状态保持，
// 持久化失败同样保持待标注状态供重试
func (d *Digitizer) ConfirmLabel(text string) error {
	if d.state != StateAwaitingLabel {
		return fmt.Errorf("no shape awaiting label")
	}
	label := strings.TrimSpace(text)
	if label == "" {
		return fmt.Errorf("label is required")
	}

	geometryText, err := methods.GeometryToGeoJSONText(d.pending)
	if err != nil {
		return err
	}
	if _, err := d.saver.CreateDrawnShape(label, geometryText); err != nil {
		return err
	}

	d.reset()
	return nil
}

// Cancel 丢弃当前会话全部临时实体与采集点，不持久化
func (d *Digitizer) Cancel() {
	d.clearTransient()
	d.reset()
}

func (d *Digitizer) clearTransient() {
	if d.marker != nil {
		d.surface.Remove(d.marker)
		d.marker = nil
	}
	if d.preview != nil {
		d.surface.Remove(d.preview)
		d.preview = nil
	}
}

func (d *Digitizer) reset() {
	d.points = nil
	d.pending = nil
	d.mode = ""
	d.state = StateIdle
}
