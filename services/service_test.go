package services

import (
	"path/filepath"
	"testing"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const testWGS84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const testCGCS2000WKT = `GEOGCS["GCS_China_Geodetic_Coordinate_System_2000",DATUM["D_China_2000",SPHEROID["CGCS2000",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db.NamingStrategy = schema.NamingStrategy{
		SingularTable: true,
	}
	require.NoError(t, models.MigrateAllTables(db))
	return db
}

// writeShapefileFixture 写入含三个方形要素的测试矢量文件，含一个自相交要素
func writeShapefileFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField([]byte("DKMC"), 40)})

	rings := [][][]shp.Point{
		{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}},
		// 蝴蝶结，入库前需要修复
		{{{10, 10}, {12, 12}, {12, 10}, {10, 12}, {10, 10}}},
		{{{20, 20}, {20, 21}, {21, 21}, {21, 20}, {20, 20}}},
	}
	names := []string{"first", "bowtie", "third"}
	for i, rs := range rings {
		w.Write(shp.NewPolyLine(rs))
		require.NoError(t, w.WriteAttribute(i, 0, names[i]))
	}
	w.Close()
	return path
}
