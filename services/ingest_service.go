package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/GrainArc/GeoGlobe/Transformer"
	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/GrainArc/GeoGlobe/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"encoding/json"
)

var (
	ErrMissingFile         = errors.New("shapefile and projection files (.shp, .prj) are required")
	ErrBadCoordinateSystem = errors.New("coordinate system must be WGS 84")
)

// WGS84SRID 入库统一使用的经纬度坐标参考
const WGS84SRID = 4326

type IngestService struct {
	DB         *gorm.DB
	UploadRoot string
}

func NewIngestService(db *gorm.DB, uploadRoot string) *IngestService {
	return &IngestService{DB: db, UploadRoot: uploadRoot}
}

// IngestShapefile 上传矢量入库全流程：
// 落盘 -> 坐标系校验 -> 创建文件记录 -> 逐要素修复 -> 批量入库
// 上传文件落盘后不随失败回滚清理
func (s *IngestService) IngestShapefile(shpName string, shpData io.Reader, prjData io.Reader) (*models.Shapefile, error) {
	if shpName == "" || shpData == nil || prjData == nil {
		return nil, ErrMissingFile
	}

	baseName := strings.TrimSuffix(filepath.Base(shpName), filepath.Ext(shpName))
	uploadDir := filepath.Join(s.UploadRoot, baseName)
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	shpPath := filepath.Join(uploadDir, baseName+".shp")
	prjPath := filepath.Join(uploadDir, baseName+".prj")
	if err := writeBlob(shpPath, shpData); err != nil {
		return nil, err
	}
	if err := writeBlob(prjPath, prjData); err != nil {
		return nil, err
	}

	return s.ingestSaved(baseName, shpPath, prjPath)
}

// IngestArchive 压缩包上传：解压后定位其中的shp/prj对再走常规入库
func (s *IngestService) IngestArchive(zipName string, zipData io.Reader) (*models.Shapefile, error) {
	if zipName == "" || zipData == nil {
		return nil, ErrMissingFile
	}

	baseName := strings.TrimSuffix(filepath.Base(zipName), filepath.Ext(zipName))
	uploadDir := filepath.Join(s.UploadRoot, baseName)
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	zipPath := filepath.Join(uploadDir, filepath.Base(zipName))
	if err := writeBlob(zipPath, zipData); err != nil {
		return nil, err
	}
	if err := methods.Unzip(zipPath); err != nil {
		return nil, fmt.Errorf("failed to unpack archive: %w", err)
	}

	shpFiles := Transformer.FindFiles(uploadDir, "shp")
	prjFiles := Transformer.FindFiles(uploadDir, "prj")
	if len(shpFiles) == 0 || len(prjFiles) == 0 {
		return nil, ErrMissingFile
	}
	shpBase := strings.TrimSuffix(filepath.Base(shpFiles[0]), ".shp")

	return s.ingestSaved(shpBase, shpFiles[0], prjFiles[0])
}

func (s *IngestService) ingestSaved(baseName, shpPath, prjPath string) (*models.Shapefile, error) {
	prjText, err := os.ReadFile(prjPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read projection file: %w", err)
	}
	isWGS84, err := Transformer.CheckWGS84CRS(string(prjText))
	if err != nil {
		return nil, err
	}
	if !isWGS84 {
		return nil, ErrBadCoordinateSystem
	}

	// 文件记录先于要素提交，要素外键依赖其ID
	shapefile := models.Shapefile{Name: baseName}
	if err := s.DB.Create(&shapefile).Error; err != nil {
		return nil, fmt.Errorf("failed to create shapefile record: %w", err)
	}

	features, err := Transformer.ReadShapefile(shpPath)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Geometry, 0, len(features))
	for _, feature := range features {
		geometry := feature.Geometry
		if !methods.IsGeometryValid(geometry) {
			geometry = methods.RepairGeometry(geometry)
		}

		geomHex, err := methods.GeometryToWKBHex(geometry)
		if err != nil {
			return nil, err
		}

		var attrs datatypes.JSON
		if len(feature.Properties) > 0 {
			if data, jsonErr := json.Marshal(feature.Properties); jsonErr == nil {
				attrs = data
			}
		}

		rows = append(rows, models.Geometry{
			ShapefileID: shapefile.ID,
			Geom:        geomHex,
			SRID:        WGS84SRID,
			Attributes:  attrs,
		})
	}

	// 要素整体一个事务提交，中途失败不回滚文件记录
	if len(rows) > 0 {
		if err := s.DB.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&rows).Error
		}); err != nil {
			return nil, fmt.Errorf("failed to save geometries: %w", err)
		}
	}
	log.Printf("Ingested shapefile %s with %d geometries", baseName, len(rows))

	return &shapefile, nil
}

func writeBlob(path string, data io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, data); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}
