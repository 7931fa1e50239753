package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadShapefile 按文件顺序提取shapefile中的全部要素
// 纯解码步骤：单条记录的几何有效性问题不在此处理，由下游修复
func ReadShapefile(shpfileFilePath string) ([]*geojson.Feature, error) {
	shape, err := shp.Open(shpfileFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	// 从DBF文件获取字段定义
	fields := shape.Fields()

	// 读取字符编码配置(CPG文件)
	encoding := readCPGEncoding(shpfileFilePath)

	var features []*geojson.Feature
	for shape.Next() {
		n, p := shape.Shape()

		var geometry orb.Geometry
		switch s := p.(type) {
		case *shp.Point:
			geometry = orb.Point{s.X, s.Y}
		case *shp.PointZ:
			geometry = orb.Point{s.X, s.Y}
		case *shp.PointM:
			geometry = orb.Point{s.X, s.Y}
		case *shp.PolyLine:
			geometry = buildLineGeometry(s.Points, s.Parts)
		case *shp.PolyLineZ:
			geometry = buildLineGeometry(s.Points, s.Parts)
		case *shp.PolyLineM:
			geometry = buildLineGeometry(s.Points, s.Parts)
		case *shp.Polygon:
			geometry = buildPolygonGeometry(s.Points, s.Parts)
		case *shp.PolygonZ:
			geometry = buildPolygonGeometry(s.Points, s.Parts)
		case *shp.PolygonM:
			geometry = buildPolygonGeometry(s.Points, s.Parts)
		default:
			// 空要素或不支持的类型跳过
			continue
		}

		feature := geojson.NewFeature(geometry)
		feature.Properties = buildAttributes(n, shape, fields, encoding)
		features = append(features, feature)
	}

	return features, nil
}

// splitParts 按parts索引将点集切分为多个环
func splitParts(points []shp.Point, parts []int32) [][]shp.Point {
	if len(parts) == 0 {
		return [][]shp.Point{points}
	}
	var rings [][]shp.Point
	for i, start := range parts {
		end := int32(len(points))
		if i < len(parts)-1 {
			end = parts[i+1]
		}
		rings = append(rings, points[start:end])
	}
	return rings
}

func toOrbRing(points []shp.Point) orb.Ring {
	coords := make([]orb.Point, len(points))
	for i, vertex := range points {
		coords[i] = orb.Point{vertex.X, vertex.Y}
	}
	return orb.Ring(coords)
}

// IsClockwise 判断环的方向，shapefile规范中顺时针为外环
func IsClockwise(points orb.Ring) bool {
	sum := 0.0
	for i := 0; i < len(points)-1; i++ {
		p1 := points[i]
		p2 := points[i+1]
		sum += (p2[0] - p1[0]) * (p2[1] + p1[1])
	}
	// If sum is positive, points are in clockwise order.
	return sum > 0
}

// buildLineGeometry 线要素：单部分为LineString，多部分为MultiLineString
func buildLineGeometry(points []shp.Point, parts []int32) orb.Geometry {
	segments := splitParts(points, parts)
	if len(segments) == 1 {
		return orb.LineString(toOrbRing(segments[0]))
	}
	var multi orb.MultiLineString
	for _, seg := range segments {
		multi = append(multi, orb.LineString(toOrbRing(seg)))
	}
	return multi
}

// buildPolygonGeometry 面要素：顺时针环开启新多边形，后续逆时针环作为其内环
func buildPolygonGeometry(points []shp.Point, parts []int32) orb.Geometry {
	ringSets := splitParts(points, parts)

	var polygons []orb.Polygon
	for _, rs := range ringSets {
		ring := toOrbRing(rs)
		if IsClockwise(ring) || len(polygons) == 0 {
			polygons = append(polygons, orb.Polygon{ring})
		} else {
			last := len(polygons) - 1
			polygons[last] = append(polygons[last], ring)
		}
	}

	if len(polygons) == 1 {
		return polygons[0]
	}
	return orb.MultiPolygon(polygons)
}

// readCPGEncoding 读取CPG文件获取DBF属性的字符编码，默认GBK
func readCPGEncoding(shpfilePath string) string {
	dir := filepath.Dir(shpfilePath)
	base := filepath.Base(shpfilePath)
	cpgPath := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".cpg")

	cpgContent, err := os.ReadFile(cpgPath)
	if err != nil {
		return "GBK"
	}
	return strings.TrimSpace(string(cpgContent))
}

// buildAttributes 构建要素属性字典
func buildAttributes(n int, shape *shp.Reader, fields []shp.Field, encoding string) map[string]interface{} {
	attrs := make(map[string]interface{})

	for k, f := range fields {
		// DBF定长记录带NUL/空格填充，去除后再入属性
		name := strings.TrimRight(f.String(), "\x00 ")
		attrValue := strings.TrimRight(shape.ReadAttribute(n, k), "\x00 ")
		if strings.EqualFold(encoding, "GBK") {
			// GBK编码需要转换为UTF-8
			attrs[GbkToUtf8(name)] = GbkToUtf8(attrValue)
		} else {
			attrs[name] = attrValue
		}
	}

	if len(fields) == 0 {
		attrs["attribute"] = "null"
	}

	return attrs
}
