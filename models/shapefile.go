package models

import (
	"gorm.io/datatypes"
)

// DrawingsName 手绘图形统一挂载的矢量文件名
const DrawingsName = "Drawings"

type Shapefile struct {
	ID   int64  `gorm:"primary_key;autoIncrement"`
	Name string `gorm:"type:varchar(255)"`
}

// Geometry 矢量要素表，Geom为十六进制WKB，入库前必须经过拓扑修复
type Geometry struct {
	ID          int64          `gorm:"primary_key;autoIncrement"`
	ShapefileID int64          `gorm:"index"`
	Geom        string         `gorm:"type:text"`
	SRID        int
	Label       string         `gorm:"type:varchar(255)"`
	Attributes  datatypes.JSON `gorm:"type:json"`
}
