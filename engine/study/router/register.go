package studyrouter

import (
	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/middleware/size"
)

// uploadSlack covers the multipart envelope around the file itself.
const uploadSlack = 1 << 20

func Register(r *gin.Engine, maxUploadBytes int64) {
	// Pages
	r.GET("/", dashboardPage)
	r.GET("/studies_manager", studiesManagerPage)
	r.GET("/studies_manager/add", addStudyPage)
	r.GET("/studies_manager/modify/:study", modifyStudyPage)
	r.GET("/study/:study", studyPage)
	r.GET("/study/:study/add_file", addFilePage)

	// GET /datajs/studies
	// Ids of every study, used to wire the manager list
	r.GET("/datajs/studies", listStudyIDs)

	manager := r.Group("/studies_manager")
	{
		// POST /studies_manager/create
		manager.POST("/create", createStudy)

		// GET /studies_manager/visibility/:study
		// Flip the visibility and return the new state
		manager.GET("/visibility/:study", toggleVisibility)

		// POST /studies_manager/delete/:study
		manager.POST("/delete/:study", deleteStudy)
	}

	// POST /study/submit_modif/:study
	r.POST("/study/submit_modif/:study", updateStudy)

	studyGroup := r.Group("/study/:study")
	{
		// POST /study/:study/upload
		// Import an outline or zones file (multipart field "file")
		studyGroup.POST("/upload", size.BodySizeLimiter(maxUploadBytes+uploadSlack), uploadFile(maxUploadBytes))

		// GET /study/:study/outline
		// Outline as a GeoJSON FeatureCollection
		studyGroup.GET("/outline", getOutline)

		// GET /study/:study/zones?clean=true|false
		studyGroup.GET("/zones", listZones)

		// GET /study/:study/map
		// Map HTML fragment of the study
		studyGroup.GET("/map", studyMap)

		// POST /study/:study/layers/:kind/clear
		// Drop an imported layer and its raw file
		studyGroup.POST("/layers/:kind/clear", clearLayer)

		// GET /study/:study/files
		studyGroup.GET("/files", listFiles)

		// GET /study/:study/files/:kind/:name
		// Download a kept raw upload
		studyGroup.GET("/files/:kind/:name", downloadFile)
	}
}
