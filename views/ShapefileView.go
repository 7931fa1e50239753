package views

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrainArc/GeoGlobe/Transformer"
	"github.com/GrainArc/GeoGlobe/services"
	"github.com/gin-gonic/gin"
)

// Upload 矢量上传入库
// 常规模式要求ShpFile+PrjFile，也接受单个ZipFile压缩包
func (uc *UserController) Upload(c *gin.Context) {
	if zipFile, err := c.FormFile("ZipFile"); err == nil && zipFile != nil {
		src, err := zipFile.Open()
		if err != nil {
			c.String(http.StatusBadRequest, "File upload failed: "+err.Error())
			return
		}
		defer src.Close()

		if _, err := uc.ingestService.IngestArchive(zipFile.Filename, src); err != nil {
			writeIngestError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Shapefile uploaded and processed successfully."})
		return
	}

	shpFile, shpErr := c.FormFile("ShpFile")
	prjFile, prjErr := c.FormFile("PrjFile")
	if shpErr != nil || prjErr != nil {
		c.String(http.StatusBadRequest, services.ErrMissingFile.Error())
		return
	}

	shpSrc, err := shpFile.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "File upload failed: "+err.Error())
		return
	}
	defer shpSrc.Close()
	prjSrc, err := prjFile.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "File upload failed: "+err.Error())
		return
	}
	defer prjSrc.Close()

	if _, err := uc.ingestService.IngestShapefile(shpFile.Filename, shpSrc, prjSrc); err != nil {
		writeIngestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shapefile uploaded and processed successfully."})
}

// writeIngestError 入库失败统一转HTTP状态码，校验类失败一律400
func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingFile),
		errors.Is(err, services.ErrBadCoordinateSystem),
		errors.Is(err, Transformer.ErrBadProjection):
		c.String(http.StatusBadRequest, err.Error())
	default:
		log.Printf("Shapefile ingestion failed: %v", err)
		c.String(http.StatusInternalServerError, err.Error())
	}
}

func (uc *UserController) GetShapefileList(c *gin.Context) {
	shapefiles, err := uc.geomService.ListShapefiles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, shapefiles)
}

// GetGeometries 要素列表，可按shapefileId过滤，几何为GeoJSON文本
func (uc *UserController) GetGeometries(c *gin.Context) {
	var shapefileID *int64
	if raw := strings.TrimSpace(c.Query("shapefileId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shapefileId"})
			return
		}
		shapefileID = &id
	}

	geometries, err := uc.geomService.ListGeometries(shapefileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, geometries)
}

type LabelDto struct {
	Label string `json:"label"`
}

func (uc *UserController) UpdateLabel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var dto LabelDto
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = uc.geomService.UpdateLabel(id, dto.Label)
	if errors.Is(err, services.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type LabelBatchDto struct {
	Labels map[int64]string `json:"labels"`
}

// UpdateLabels 批量标注更新，未知id跳过
func (uc *UserController) UpdateLabels(c *gin.Context) {
	var dto LabelBatchDto
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := uc.geomService.UpdateLabels(dto.Labels)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type NewShapeDto struct {
	Label    string `json:"label"`
	Geometry string `json:"geometry"`
}

// NewShape 手绘图形入库，挂载到保留的Drawings记录下
func (uc *UserController) NewShape(c *gin.Context) {
	var dto NewShapeDto
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := uc.geomService.CreateDrawnShape(dto.Label, dto.Geometry)
	if errors.Is(err, services.ErrValidation) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          row.ID,
		"shapefileId": row.ShapefileID,
		"label":       row.Label,
	})
}
