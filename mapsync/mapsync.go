// Package mapsync 地图图层同步：按矢量文件分组建层、可见性管理、
// 要素id到渲染实体的反查索引
package mapsync

import (
	"log"
	"sync"

	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/paulmach/orb/geojson"
)

// Record 参与建层的要素记录，Geometry为GeoJSON几何文本
type Record struct {
	ID          int64
	ShapefileID int64
	Label       string
	Geometry    string
}

// FeatureProps 渲染实体上挂载的类型化属性
type FeatureProps struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	ShapefileID int64  `json:"shapefileId"`
}

type Entity interface {
	Props() FeatureProps
}

// Layer 一个矢量文件对应的独立可见性图层
type Layer interface {
	SetVisible(visible bool)
	Entities() []Entity
}

// Renderer 渲染面抽象。LoadLayer为异步加载，结果经done回调送回
type Renderer interface {
	LoadLayer(groupID int64, fc *geojson.FeatureCollection, done func(Layer, error))
	RemoveLayer(layer Layer)
	FlyToLayer(layer Layer)
	FlyToEntity(entity Entity)
}

// Manager 单会话图层状态，不使用进程级全局
type Manager struct {
	renderer Renderer

	mu         sync.Mutex
	generation uint64
	layers     map[int64]Layer
	visibility map[int64]bool
	entities   map[int64]Entity
}

func NewManager(renderer Renderer) *Manager {
	return &Manager{
		renderer:   renderer,
		layers:     make(map[int64]Layer),
		visibility: make(map[int64]bool),
		entities:   make(map[int64]Entity),
	}
}

// LoadFeatures 全量刷新：拆除全部已建图层后按矢量文件分组重建
// 数据量小，不做增量diff。异步加载结果用代数判别，过期结果直接丢弃
func (m *Manager) LoadFeatures(records []Record) {
	m.mu.Lock()
	m.generation++
	gen := m.generation

	for _, layer := range m.layers {
		m.renderer.RemoveLayer(layer)
	}
	m.layers = make(map[int64]Layer)
	m.entities = make(map[int64]Entity)

	groups, order := groupRecords(records)
	for _, groupID := range order {
		// 未见过的分组默认隐藏
		if _, seen := m.visibility[groupID]; !seen {
			m.visibility[groupID] = false
		}
	}
	m.mu.Unlock()

	for _, groupID := range order {
		gid := groupID
		fc := buildFeatureCollection(groups[gid])
		m.renderer.LoadLayer(gid, fc, func(layer Layer, err error) {
			m.onLayerLoaded(gen, gid, layer, err)
		})
	}
}

// onLayerLoaded 异步加载完成回调，晚于新一轮刷新到达的结果不得复活旧实体
func (m *Manager) onLayerLoaded(gen uint64, groupID int64, layer Layer, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		if layer != nil {
			m.renderer.RemoveLayer(layer)
		}
		return
	}
	if err != nil {
		// 加载失败只记日志，该图层缺席，会话继续
		log.Printf("Error loading shapefile layer %d: %v", groupID, err)
		return
	}

	layer.SetVisible(m.visibility[groupID])
	m.layers[groupID] = layer
	for _, entity := range layer.Entities() {
		m.entities[entity.Props().ID] = entity
	}
}

// SetVisibility 切换图层可见性，转为可见时飞行定位到图层范围
func (m *Manager) SetVisibility(groupID int64, visible bool) {
	m.mu.Lock()
	m.visibility[groupID] = visible
	layer, ok := m.layers[groupID]
	m.mu.Unlock()

	if !ok {
		return
	}
	layer.SetVisible(visible)
	if visible {
		m.renderer.FlyToLayer(layer)
	}
}

// LookupEntity 要素id反查渲染实体，O(1)
func (m *Manager) LookupEntity(id int64) (Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	return entity, ok
}

// ZoomToFeature 表格选中要素后定位视角
func (m *Manager) ZoomToFeature(id int64) {
	entity, ok := m.LookupEntity(id)
	if !ok {
		log.Printf("Entity not found for ID %d", id)
		return
	}
	m.renderer.FlyToEntity(entity)
}

// groupRecords 按ShapefileID分组，组序与组内序都保持输入顺序
func groupRecords(records []Record) (map[int64][]Record, []int64) {
	groups := make(map[int64][]Record)
	var order []int64
	for _, record := range records {
		if _, ok := groups[record.ShapefileID]; !ok {
			order = append(order, record.ShapefileID)
		}
		groups[record.ShapefileID] = append(groups[record.ShapefileID], record)
	}
	return groups, order
}

// buildFeatureCollection 解析几何文本组装要素集
// 单条解析失败记日志后跳过，不拖垮整层
func buildFeatureCollection(records []Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, record := range records {
		geom, err := methods.GeoJSONTextToGeometry(record.Geometry)
		if err != nil {
			log.Printf("Skipping geometry %d: %v", record.ID, err)
			continue
		}
		feature := geojson.NewFeature(geom)
		feature.Properties = map[string]interface{}{
			"id":          record.ID,
			"label":       record.Label,
			"shapefileId": record.ShapefileID,
		}
		fc.Append(feature)
	}
	return fc
}
