package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/appstate"
	studyrouter "github.com/systragroup/SG-DataDashboard/engine/study/router"
	"github.com/systragroup/SG-DataDashboard/web"
)

// RegisterRoutes mounts the pages, the static assets, the JSON endpoints and
// the operational routes.
func RegisterRoutes(router *gin.Engine, state *appstate.State) error {
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", web.Static())

	router.GET("/health", CreateHealthHandler())
	if state.Monitoring.IsInitialized() {
		router.GET(state.Monitoring.Path(), gin.WrapH(state.Monitoring.ExporterHandler()))
	}
	studyrouter.Register(router, state.Config.Upload.MaxBytes)
	return nil
}
