package methods

import (
	"math"

	"github.com/paulmach/orb"
)

// WGS84椭球参数
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84B  = wgs84A * (1.0 - wgs84F)
	wgs84E2 = wgs84F * (2.0 - wgs84F)
)

// EcefToLonLat 地心直角坐标转经纬度(度)，Bowring迭代初值法
// 球面拾取返回的是ECEF坐标，入库前需要转为经纬度
func EcefToLonLat(x, y, z float64) orb.Point {
	lon := math.Atan2(y, x)

	p := math.Hypot(x, y)
	if p < 1e-9 {
		// 极点退化情形
		lat := math.Pi / 2
		if z < 0 {
			lat = -lat
		}
		return orb.Point{rad2deg(lon), rad2deg(lat)}
	}

	ep2 := (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	theta := math.Atan2(z*wgs84A, p*wgs84B)
	sinT := math.Sin(theta)
	cosT := math.Cos(theta)
	lat := math.Atan2(z+ep2*wgs84B*sinT*sinT*sinT, p-wgs84E2*wgs84A*cosT*cosT*cosT)

	return orb.Point{rad2deg(lon), rad2deg(lat)}
}

// LonLatToEcef 经纬度(度)转地心直角坐标，椭球面高程取0
func LonLatToEcef(lon, lat float64) (x, y, z float64) {
	lonR := deg2rad(lon)
	latR := deg2rad(lat)
	sinLat := math.Sin(latR)
	n := wgs84A / math.Sqrt(1.0-wgs84E2*sinLat*sinLat)

	x = n * math.Cos(latR) * math.Cos(lonR)
	y = n * math.Cos(latR) * math.Sin(lonR)
	z = n * (1.0 - wgs84E2) * sinLat
	return x, y, z
}

func rad2deg(r float64) float64 {
	return r * 180.0 / math.Pi
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180.0
}
