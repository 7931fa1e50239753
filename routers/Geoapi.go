package routers

import (
	"github.com/GrainArc/GeoGlobe/views"
	"github.com/gin-gonic/gin"
)

func GeoRouters(r *gin.Engine) {
	UserController := views.NewUserController()
	digitizeHandler := views.NewDigitizeHandler()

	shpRouter := r.Group("/shapefile")
	{
		shpRouter.POST("/shapefile", UserController.Upload)
		shpRouter.GET("/shapefiles", UserController.GetShapefileList)
		shpRouter.GET("/geometries", UserController.GetGeometries)
		shpRouter.PUT("/update-label/:id", UserController.UpdateLabel)
		shpRouter.PUT("/update-labels", UserController.UpdateLabels)
		shpRouter.POST("/new-shape", UserController.NewShape)
		shpRouter.GET("/digitize", digitizeHandler.InitDigitize)
	}
}
