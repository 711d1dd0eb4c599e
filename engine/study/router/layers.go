package studyrouter

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/monitoring"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/router"
	"github.com/systragroup/SG-DataDashboard/engine/mapview"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
)

func tooLarge(maxBytes int64) *router.RequestError {
	return router.NewRequestError(
		http.StatusRequestEntityTooLarge,
		fmt.Sprintf("%s (limit %d bytes)", router.ErrMsgUploadTooLarge, maxBytes),
		nil,
	)
}

// uploadFile imports the multipart "file" field as an outline or zones layer.
func uploadFile(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := router.GetAppState(c)
		if !ok {
			return
		}
		id := router.GetStudyID(c)
		if id == "" {
			return
		}
		if c.Request.ContentLength > maxBytes+uploadSlack {
			router.RespondWithError(c, tooLarge(maxBytes))
			return
		}
		header, err := c.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "file is required", err))
			return
		case err != nil:
			router.RespondWithError(c, err)
			return
		case header.Size > maxBytes:
			router.RespondWithError(c, tooLarge(maxBytes))
			return
		}
		kind, err := study.ParseLayerKind(c.PostForm("kind"))
		if err != nil {
			router.RespondWithError(c, err)
			return
		}
		var opts uc.UploadOptions
		if err := c.ShouldBind(&opts); err != nil {
			router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "invalid upload options", err))
			return
		}
		file, err := header.Open()
		if err != nil {
			router.RespondWithError(c, err)
			return
		}
		defer file.Close()

		res, err := uc.NewUploadStudyFile(state.Studies, state.Layers, state.Files, &uc.UploadInput{
			StudyID:  id,
			Kind:     kind,
			FileName: header.Filename,
			Content:  file,
			Options:  opts,
		}).Execute(c.Request.Context())
		if err != nil {
			state.Monitoring.RecordUpload(string(kind), monitoring.UploadFailure)
			router.RespondWithError(c, err)
			return
		}
		state.Monitoring.RecordUpload(string(kind), monitoring.UploadSuccess)
		router.RespondOK(c, gin.H{
			"kind":        res.Kind,
			"file_name":   res.FileName,
			"format":      res.Format,
			"source_epsg": res.SourceEPSG,
			"features":    res.Features,
			"clean":       res.Clean,
			"unclean":     res.Unclean,
			"fields":      res.Fields,
			"bounds":      res.Bounds,
		})
	}
}

// getOutline returns the stored outline as GeoJSON.
func getOutline(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	rec, err := uc.NewGetLayer(state.Studies, state.Layers, id, study.KindOutline).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", rec.GeoJSON)
}

// listZones returns the zones split into clean and unclean.
func listZones(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	var filter study.ZoneFilter
	if raw, ok := c.GetQuery("clean"); ok {
		clean, err := strconv.ParseBool(raw)
		if err != nil {
			router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "clean must be true or false", err))
			return
		}
		filter.Clean = &clean
	}
	listing, err := uc.NewListZones(state.Studies, state.Layers, id, filter).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// studyMap renders the study map as an HTML fragment.
func studyMap(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	ctx := c.Request.Context()
	s, err := uc.NewGetStudy(state.Studies, id).Execute(ctx)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	outline, err := optionalLayer(ctx, state, id, study.KindOutline)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	var zones []study.StoredZone
	listing, err := uc.NewListZones(state.Studies, state.Layers, id, study.ZoneFilter{}).Execute(ctx)
	switch {
	case err == nil:
		zones = append(append(zones, listing.Clean...), listing.Unclean...)
	case !errors.Is(err, study.ErrLayerNotFound):
		router.RespondWithError(c, err)
		return
	}
	html, err := mapview.Study(mapOptions(state.Config.Map, fragmentMapHeight), s, outline, zones).Render()
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// clearLayer drops an imported layer and its raw file.
func clearLayer(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	kind, err := study.ParseLayerKind(c.Param("kind"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	err = uc.NewClearLayer(state.Studies, state.Layers, state.Files, id, kind).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, gin.H{"kind": kind})
}

// listFiles returns the raw files kept for a study.
func listFiles(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	files, err := uc.NewListFiles(state.Studies, state.Files, id).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	if files == nil {
		files = []study.StoredFile{}
	}
	router.RespondOK(c, gin.H{"files": files})
}

// downloadFile streams a kept raw upload as an attachment.
func downloadFile(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	kind, err := study.ParseLayerKind(c.Param("kind"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	opened, err := uc.NewOpenFile(state.Studies, state.Files, id, kind, c.Param("name")).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	defer opened.File.Close()
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": opened.Info.Name()})
	c.DataFromReader(http.StatusOK, opened.Info.Size(), "application/octet-stream", opened.File, map[string]string{
		"Content-Disposition": disposition,
	})
}
