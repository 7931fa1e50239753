package methods

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
)

// GeometryToWKBHex 几何对象编码为十六进制WKB入库
func GeometryToWKBHex(g orb.Geometry) (string, error) {
	tempWkb, err := wkb.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode geometry: %w", err)
	}
	return hex.EncodeToString(tempWkb), nil
}

// WKBHexToGeometry 从库内十六进制WKB还原几何对象
func WKBHexToGeometry(geomStr string) (orb.Geometry, error) {
	wkbBytes, err := hex.DecodeString(strings.TrimSpace(geomStr))
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry hex: %w", err)
	}
	geom, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry wkb: %w", err)
	}
	return geom, nil
}

// GeometryToGeoJSONText 每次调用都重新序列化，不做缓存
func GeometryToGeoJSONText(g orb.Geometry) (string, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return "", fmt.Errorf("failed to marshal geometry: %w", err)
	}
	return string(data), nil
}

// GeoJSONTextToGeometry 解析GeoJSON几何文本
func GeoJSONTextToGeometry(text string) (orb.Geometry, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid geometry GeoJSON: %w", err)
	}
	return geom.Geometry(), nil
}
