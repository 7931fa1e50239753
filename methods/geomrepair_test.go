package methods

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validSquare = orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

// 蝴蝶结：对角自相交
var bowtie = orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}

func TestIsGeometryValid(t *testing.T) {
	assert.True(t, IsGeometryValid(validSquare))
	assert.False(t, IsGeometryValid(bowtie))
	assert.True(t, IsGeometryValid(orb.LineString{{0, 0}, {1, 1}}))
}

func TestRepairGeometry_ValidUnchanged(t *testing.T) {
	repaired := RepairGeometry(validSquare)
	assert.Equal(t, orb.Geometry(validSquare), repaired)
}

func TestRepairGeometry_Bowtie(t *testing.T) {
	repaired := RepairGeometry(bowtie)

	require.True(t, IsGeometryValid(repaired))
	switch repaired.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		t.Fatalf("repair changed geometry family: %T", repaired)
	}

	// 蝴蝶结修复为两个三角形，总面积为1
	assert.InDelta(t, 1.0, planar.Area(repaired), 1e-9)
}

func TestRepairGeometry_SelfIntersectingMulti(t *testing.T) {
	mp := orb.MultiPolygon{bowtie}
	repaired := RepairGeometry(mp)

	require.True(t, IsGeometryValid(repaired))
	switch repaired.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		t.Fatalf("repair changed geometry family: %T", repaired)
	}
}

func TestRepairGeometry_Line(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}, {2, 2}}
	repaired := RepairGeometry(line)
	assert.Equal(t, orb.Geometry(line), repaired)
}
