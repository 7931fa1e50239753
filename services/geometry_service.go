package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/GrainArc/GeoGlobe/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
)

type ShapefileInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GeometryDTO 要素出参，Geometry为GeoJSON几何文本
type GeometryDTO struct {
	ID          int64  `json:"id"`
	Geometry    string `json:"geometry"`
	ShapefileID int64  `json:"shapefileId"`
	Label       string `json:"label"`
}

type GeometryService struct {
	DB *gorm.DB
}

func NewGeometryService(db *gorm.DB) *GeometryService {
	return &GeometryService{DB: db}
}

// ListShapefiles 全部矢量文件记录，按插入顺序
func (s *GeometryService) ListShapefiles() ([]ShapefileInfo, error) {
	var shapefiles []models.Shapefile
	if err := s.DB.Order("id").Find(&shapefiles).Error; err != nil {
		return nil, err
	}
	infos := make([]ShapefileInfo, 0, len(shapefiles))
	for _, item := range shapefiles {
		infos = append(infos, ShapefileInfo{ID: item.ID, Name: item.Name})
	}
	return infos, nil
}

// ListGeometries 要素列表，shapefileID为nil时返回全部
// 几何每次调用从WKB重新序列化为GeoJSON文本
func (s *GeometryService) ListGeometries(shapefileID *int64) ([]GeometryDTO, error) {
	query := s.DB.Order("id")
	if shapefileID != nil {
		query = query.Where("shapefile_id = ?", *shapefileID)
	}

	var rows []models.Geometry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	dtos := make([]GeometryDTO, 0, len(rows))
	for _, row := range rows {
		geom, err := methods.WKBHexToGeometry(row.Geom)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", row.ID, err)
		}
		text, err := methods.GeometryToGeoJSONText(geom)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", row.ID, err)
		}
		dtos = append(dtos, GeometryDTO{
			ID:          row.ID,
			Geometry:    text,
			ShapefileID: row.ShapefileID,
			Label:       row.Label,
		})
	}
	return dtos, nil
}

// UpdateLabel 只更新Label字段，id不存在时返回ErrNotFound
func (s *GeometryService) UpdateLabel(id int64, label string) error {
	var row models.Geometry
	if err := s.DB.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.DB.Model(&row).Update("label", label).Error
}

// UpdateLabels 批量标注更新，跳过不存在的id，返回实际更新条数
func (s *GeometryService) UpdateLabels(labels map[int64]string) (int, error) {
	updated := 0
	for id, label := range labels {
		err := s.UpdateLabel(id, label)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// CreateDrawnShape 手绘图形入库，统一挂载到保留的Drawings文件记录下
func (s *GeometryService) CreateDrawnShape(label string, geometryText string) (*models.Geometry, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}
	if strings.TrimSpace(geometryText) == "" {
		return nil, fmt.Errorf("%w: geometry is required", ErrValidation)
	}

	geometry, err := methods.GeoJSONTextToGeometry(geometryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !methods.IsGeometryValid(geometry) {
		geometry = methods.RepairGeometry(geometry)
	}

	// 查找或创建Drawings容器记录
	var shapefile models.Shapefile
	err = s.DB.Where("name = ?", models.DrawingsName).First(&shapefile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		shapefile = models.Shapefile{Name: models.DrawingsName}
		err = s.DB.Create(&shapefile).Error
	}
	if err != nil {
		return nil, err
	}

	geomHex, err := methods.GeometryToWKBHex(geometry)
	if err != nil {
		return nil, err
	}
	row := models.Geometry{
		ShapefileID: shapefile.ID,
		Geom:        geomHex,
		SRID:        WGS84SRID,
		Label:       strings.TrimSpace(label),
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
