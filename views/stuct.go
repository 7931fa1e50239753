package views

import (
	"github.com/GrainArc/GeoGlobe/config"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/GrainArc/GeoGlobe/services"
)

type UserController struct {
	ingestService *services.IngestService
	geomService   *services.GeometryService
}

func NewUserController() *UserController {
	return &UserController{
		ingestService: services.NewIngestService(models.DB, config.Upload),
		geomService:   services.NewGeometryService(models.DB),
	}
}
