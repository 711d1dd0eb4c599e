package studyrouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/router"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
)

// bindStudyForm reads the study form. Coordinates that are not numbers are a
// validation failure, not a server error.
func bindStudyForm(c *gin.Context) (*study.CreateInput, bool) {
	input := &study.CreateInput{}
	if err := c.ShouldBind(input); err != nil {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "invalid study form", err))
		return nil, false
	}
	return input, true
}

// listStudyIDs returns the ids of every study.
func listStudyIDs(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	studies, err := uc.NewListStudies(state.Studies, study.ListFilter{}).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	ids := make([]string, 0, len(studies))
	for _, s := range studies {
		ids = append(ids, s.ID)
	}
	c.JSON(http.StatusOK, ids)
}

// createStudy registers a study from the creation form.
func createStudy(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	input, ok := bindStudyForm(c)
	if !ok {
		return
	}
	s, err := uc.NewCreateStudy(state.Studies, state.Layers, state.Files, input).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, gin.H{"study": s.ID})
}

// toggleVisibility flips the dashboard visibility of a study.
func toggleVisibility(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	visible, err := uc.NewToggleVisibility(state.Studies, id).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, gin.H{"state": visible})
}

// updateStudy applies the modification form. The id does not change.
func updateStudy(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	input, ok := bindStudyForm(c)
	if !ok {
		return
	}
	s, err := uc.NewUpdateStudy(state.Studies, id, (*study.UpdateInput)(input)).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, gin.H{"study": s.ID})
}

// deleteStudy removes a study with its directory and database.
func deleteStudy(c *gin.Context) {
	state, ok := router.GetAppState(c)
	if !ok {
		return
	}
	id := router.GetStudyID(c)
	if id == "" {
		return
	}
	if err := uc.NewDeleteStudy(state.Studies, state.Layers, state.Files, id).Execute(c.Request.Context()); err != nil {
		router.RespondWithError(c, err)
		return
	}
	router.RespondOK(c, nil)
}
