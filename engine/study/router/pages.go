package studyrouter

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/appstate"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/router"
	"github.com/systragroup/SG-DataDashboard/engine/mapview"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

const (
	pageMapHeight     = "560px"
	fragmentMapHeight = "420px"
)

func mapOptions(cfg config.MapConfig, height string) mapview.Options {
	return mapview.Options{
		TilesURL:       cfg.TilesURL,
		Attribution:    cfg.Attribution,
		LeafletVersion: cfg.LeafletVersion,
		CenterLat:      cfg.DefaultCenterLat,
		CenterLon:      cfg.DefaultCenterLon,
		Zoom:           cfg.DefaultZoom,
		Height:         height,
	}
}

// renderPage renders a page template, adding the title.
func renderPage(c *gin.Context, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	c.HTML(http.StatusOK, name, data)
}

// renderError shows the error page with the status the JSON endpoints would
// use for the same error.
func renderError(c *gin.Context, err error) {
	reqErr := router.ErrorFromDomain(err)
	if reqErr.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Page failed", "path", c.Request.URL.Path, "error", err)
	}
	c.HTML(reqErr.StatusCode, "error.html", gin.H{
		"Title":   http.StatusText(reqErr.StatusCode),
		"Message": reqErr.Reason,
	})
	c.Abort()
}

// optionalLayer returns nil when the layer was never imported.
func optionalLayer(ctx context.Context, state *appstate.State, id string, kind study.LayerKind) (*study.LayerRecord, error) {
	rec, err := uc.NewGetLayer(state.Studies, state.Layers, id, kind).Execute(ctx)
	if errors.Is(err, study.ErrLayerNotFound) {
		return nil, nil
	}
	return rec, err
}

// GET /
func dashboardPage(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	studies, err := uc.NewListStudies(state.Studies, study.ListFilter{VisibleOnly: true}).Execute(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	outlines := make(map[string]*study.LayerRecord, len(studies))
	for _, s := range studies {
		rec, err := optionalLayer(ctx, state, s.ID, study.KindOutline)
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping outline", "study_id", s.ID, "error", err)
			continue
		}
		outlines[s.ID] = rec
	}
	html, err := mapview.Dashboard(mapOptions(state.Config.Map, pageMapHeight), studies, outlines).Render()
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, "dashboard.html", "Dashboard", gin.H{"Studies": studies, "Map": html})
}

// GET /studies_manager
func studiesManagerPage(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	studies, err := uc.NewListStudies(state.Studies, study.ListFilter{}).Execute(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	html, err := mapview.Manager(mapOptions(state.Config.Map, pageMapHeight), studies).Render()
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, "studies_manager.html", "Studies manager", gin.H{"Studies": studies, "Map": html})
}

// GET /studies_manager/add
func addStudyPage(c *gin.Context) {
	renderPage(c, "studies_manager_add.html", "New study", nil)
}

// GET /studies_manager/modify/:study
func modifyStudyPage(c *gin.Context) {
	s, ok := pageStudy(c)
	if !ok {
		return
	}
	renderPage(c, "studies_manager_modify.html", "Modify "+s.Name, gin.H{"Study": s})
}

// GET /study/:study
func studyPage(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	s, ok := pageStudy(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	outline, err := optionalLayer(ctx, state, s.ID, study.KindOutline)
	if err != nil {
		renderError(c, err)
		return
	}
	zones, err := uc.NewListZones(state.Studies, state.Layers, s.ID, study.ZoneFilter{}).Execute(ctx)
	if err != nil && !errors.Is(err, study.ErrLayerNotFound) {
		renderError(c, err)
		return
	}
	files, err := uc.NewListFiles(state.Studies, state.Files, s.ID).Execute(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	var stored []study.StoredZone
	if zones != nil {
		stored = append(append(stored, zones.Clean...), zones.Unclean...)
	}
	html, err := mapview.Study(mapOptions(state.Config.Map, pageMapHeight), s, outline, stored).Render()
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, "study.html", s.Name, gin.H{
		"Study":   s,
		"Outline": outline,
		"Zones":   zones,
		"Files":   files,
		"Map":     html,
	})
}

// GET /study/:study/add_file
func addFilePage(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	s, ok := pageStudy(c)
	if !ok {
		return
	}
	renderPage(c, "study_add_file.html", "Add a file", gin.H{"Study": s, "MaxBytes": state.Config.Upload.MaxBytes})
}

func pageStudy(c *gin.Context) (*study.Study, bool) {
	state, ok := router.GetAppState(c)
	if !ok {
		return nil, false
	}
	s, err := uc.NewGetStudy(state.Studies, c.Param("study")).Execute(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	return s, true
}
