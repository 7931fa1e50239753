package main

import (
	"log"

	"github.com/GrainArc/GeoGlobe/config"
	"github.com/GrainArc/GeoGlobe/models"
	"github.com/GrainArc/GeoGlobe/routers"
	"github.com/gin-gonic/gin"
)

func main() {
	models.InitDB()

	r := gin.Default()
	routers.GeoRouters(r)

	log.Printf("Server running on %s", config.MainRouter)
	if err := r.Run(config.MainRouter); err != nil {
		log.Fatal(err)
	}
}
