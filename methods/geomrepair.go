package methods

import (
	"encoding/json"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// IsGeometryValid 拓扑有效性检查(自相交、退化环等)
func IsGeometryValid(g orb.Geometry) bool {
	gg, err := toGeosGeom(g)
	if err != nil {
		return false
	}
	return gg.IsValid()
}

// RepairGeometry 修复无效几何，有效几何原样返回
// 修复永不失败：无法修复时退化为同族空几何
func RepairGeometry(g orb.Geometry) orb.Geometry {
	gg, err := toGeosGeom(g)
	if err != nil {
		log.Printf("Geometry repair: unreadable geometry, dropping to empty: %v", err)
		return emptyOfFamily(g)
	}
	if gg.IsValid() {
		return g
	}

	log.Printf("Repairing invalid geometry: %s", gg.IsValidReason())
	repaired := gg.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
	if repaired == nil {
		return emptyOfFamily(g)
	}

	out, err := fromGeosGeom(repaired)
	if err != nil {
		log.Printf("Geometry repair: unreadable repair result, dropping to empty: %v", err)
		return emptyOfFamily(g)
	}
	return constrainFamily(g, out)
}

func toGeosGeom(g orb.Geometry) (*geos.Geom, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil, err
	}
	return geos.NewGeomFromGeoJSON(string(data))
}

func fromGeosGeom(gg *geos.Geom) (orb.Geometry, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(gg.ToGeoJSON(-1)))
	if err != nil {
		return nil, err
	}
	return geom.Geometry(), nil
}

// constrainFamily 将修复结果约束到输入几何的类型族
// MakeValid可能返回混合集合，面输入只保留面成员，线输入只保留线成员
func constrainFamily(in, out orb.Geometry) orb.Geometry {
	switch in.(type) {
	case orb.Polygon, orb.MultiPolygon:
		polys := collectPolygons(out)
		switch len(polys) {
		case 0:
			return emptyOfFamily(in)
		case 1:
			return polys[0]
		default:
			return orb.MultiPolygon(polys)
		}
	case orb.LineString, orb.MultiLineString:
		lines := collectLines(out)
		switch len(lines) {
		case 0:
			return emptyOfFamily(in)
		case 1:
			return lines[0]
		default:
			return orb.MultiLineString(lines)
		}
	default:
		return out
	}
}

func collectPolygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return []orb.Polygon(v)
	case orb.Collection:
		var polys []orb.Polygon
		for _, member := range v {
			polys = append(polys, collectPolygons(member)...)
		}
		return polys
	default:
		return nil
	}
}

func collectLines(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return []orb.LineString{v}
	case orb.MultiLineString:
		return []orb.LineString(v)
	case orb.Collection:
		var lines []orb.LineString
		for _, member := range v {
			lines = append(lines, collectLines(member)...)
		}
		return lines
	default:
		return nil
	}
}

func emptyOfFamily(g orb.Geometry) orb.Geometry {
	switch g.(type) {
	case orb.Polygon:
		return orb.Polygon{}
	case orb.MultiPolygon:
		return orb.MultiPolygon{}
	case orb.LineString:
		return orb.LineString{}
	case orb.MultiLineString:
		return orb.MultiLineString{}
	case orb.MultiPoint:
		return orb.MultiPoint{}
	default:
		return orb.Collection{}
	}
}
