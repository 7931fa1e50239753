package services

import (
	"testing"

	"github.com/GrainArc/GeoGlobe/methods"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedShapefile(t *testing.T, service *GeometryService, name string, geoms []orb.Geometry) *models.Shapefile {
	t.Helper()
	shapefile := models.Shapefile{Name: name}
	require.NoError(t, service.DB.Create(&shapefile).Error)
	for _, g := range geoms {
		geomHex, err := methods.GeometryToWKBHex(g)
		require.NoError(t, err)
		row := models.Geometry{ShapefileID: shapefile.ID, Geom: geomHex, SRID: WGS84SRID}
		require.NoError(t, service.DB.Create(&row).Error)
	}
	return &shapefile
}

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func TestListShapefiles(t *testing.T) {
	service := NewGeometryService(newTestDB(t))

	infos, err := service.ListShapefiles()
	require.NoError(t, err)
	assert.Empty(t, infos)

	seedShapefile(t, service, "landuse", nil)
	seedShapefile(t, service, "roads", nil)

	infos, err = service.ListShapefiles()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "landuse", infos[0].Name)
	assert.Equal(t, "roads", infos[1].Name)
}

func TestListGeometries_FilterIsSubsetOfAll(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	first := seedShapefile(t, service, "landuse", []orb.Geometry{square(0, 0), square(5, 5)})
	seedShapefile(t, service, "roads", []orb.Geometry{square(10, 10)})

	all, err := service.ListGeometries(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	filtered, err := service.ListGeometries(&first.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	// 过滤结果是全集的子序列
	assert.Equal(t, all[0], filtered[0])
	assert.Equal(t, all[1], filtered[1])
	for _, dto := range filtered {
		assert.Equal(t, first.ID, dto.ShapefileID)
		assert.Contains(t, dto.Geometry, `"Polygon"`)
	}
}

func TestListGeometries_UnknownShapefileEmpty(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	seedShapefile(t, service, "landuse", []orb.Geometry{square(0, 0)})

	missing := int64(999)
	filtered, err := service.ListGeometries(&missing)
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestListGeometries_RoundTripsCoordinates(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	precise := orb.Polygon{{
		{104.065739182, 30.657378214},
		{104.065739183, 30.657378214},
		{104.065739183, 30.657378215},
		{104.065739182, 30.657378214},
	}}
	shapefile := seedShapefile(t, service, "landuse", []orb.Geometry{precise})

	dtos, err := service.ListGeometries(&shapefile.ID)
	require.NoError(t, err)
	require.Len(t, dtos, 1)

	back, err := methods.GeoJSONTextToGeometry(dtos[0].Geometry)
	require.NoError(t, err)
	assert.Equal(t, orb.Geometry(precise), back)
}

func TestUpdateLabel(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	shapefile := seedShapefile(t, service, "landuse", []orb.Geometry{square(0, 0)})

	var row models.Geometry
	require.NoError(t, service.DB.Where("shapefile_id = ?", shapefile.ID).First(&row).Error)

	require.NoError(t, service.UpdateLabel(row.ID, "基本农田"))

	var updated models.Geometry
	require.NoError(t, service.DB.First(&updated, row.ID).Error)
	assert.Equal(t, "基本农田", updated.Label)
	// 只动Label，几何不变
	assert.Equal(t, row.Geom, updated.Geom)
}

func TestUpdateLabel_NotFound(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	assert.ErrorIs(t, service.UpdateLabel(12345, "x"), ErrNotFound)
}

func TestUpdateLabels_SkipsMissing(t *testing.T) {
	service := NewGeometryService(newTestDB(t))
	shapefile := seedShapefile(t, service, "landuse", []orb.Geometry{square(0, 0), square(5, 5)})

	var rows []models.Geometry
	require.NoError(t, service.DB.Where("shapefile_id = ?", shapefile.ID).Order("id").Find(&rows).Error)

	updated, err := service.UpdateLabels(map[int64]string{
		rows[0].ID: "一号",
		rows[1].ID: "二号",
		99999:      "幽灵",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
}

func TestCreateDrawnShape(t *testing.T) {
	service := NewGeometryService(newTestDB(t))

	text, err := methods.GeometryToGeoJSONText(square(104, 30))
	require.NoError(t, err)

	row, err := service.CreateDrawnShape("  手绘地块  ", text)
	require.NoError(t, err)
	assert.Equal(t, "手绘地块", row.Label)
	assert.Equal(t, WGS84SRID, row.SRID)

	// 挂载在保留的Drawings文件记录下
	var container models.Shapefile
	require.NoError(t, service.DB.Where("name = ?", models.DrawingsName).First(&container).Error)
	assert.Equal(t, container.ID, row.ShapefileID)

	// 再画一个复用同一容器
	second, err := service.CreateDrawnShape("again", text)
	require.NoError(t, err)
	assert.Equal(t, container.ID, second.ShapefileID)

	var count int64
	require.NoError(t, service.DB.Model(&models.Shapefile{}).Where("name = ?", models.DrawingsName).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateDrawnShape_RepairsInvalidInput(t *testing.T) {
	service := NewGeometryService(newTestDB(t))

	bowtie := orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
	text, err := methods.GeometryToGeoJSONText(bowtie)
	require.NoError(t, err)

	row, err := service.CreateDrawnShape("bowtie", text)
	require.NoError(t, err)

	stored, err := methods.WKBHexToGeometry(row.Geom)
	require.NoError(t, err)
	assert.True(t, methods.IsGeometryValid(stored))
}

func TestCreateDrawnShape_Validation(t *testing.T) {
	service := NewGeometryService(newTestDB(t))

	text, err := methods.GeometryToGeoJSONText(square(0, 0))
	require.NoError(t, err)

	_, err = service.CreateDrawnShape("   ", text)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateDrawnShape("label", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateDrawnShape("label", "{broken json")
	assert.ErrorIs(t, err, ErrValidation)

	// 校验失败不应创建Drawings容器
	var count int64
	require.NoError(t, service.DB.Model(&models.Shapefile{}).Count(&count).Error)
	assert.Zero(t, count)
}
