package controller

import (
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progress}
}

type UpdateTopicProgressRequest struct {
	TimeSpent  int64               `json:"timeSpent"`
	LessonData *service.LessonData `json:"lessonData"`
}

type UpdateLessonProgressRequest struct {
	LessonIndex     int    `json:"lessonIndex"`
	SubheadingIndex int    `json:"subheadingIndex"`
	LessonID        string `json:"lessonId"`
}

// UpdateTopicProgress godoc
// @Summary Record study time and lesson scores for a topic
// @Tags Progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path int true "Topic ID"
// @Param body body UpdateTopicProgressRequest true "Progress"
// @Success 200 {object} util.Response{data=model.StudentTopicProgress}
// @Failure 400 {object} util.Response
// @Router /api/v1/progress/topics/{topicId} [put]
func (c *ProgressController) UpdateTopicProgress(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	topicID, ok := util.ParamID(ctx, "topicId")
	if !ok {
		return
	}
	var req UpdateTopicProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	progress, err := c.ProgressService.UpdateTopicProgress(sid, topicID, req.TimeSpent, req.LessonData)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// UpdateLessonProgress godoc
// @Summary Move the lesson and subheading pointers
// @Tags Progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path int true "Topic ID"
// @Param body body UpdateLessonProgressRequest true "Pointers"
// @Success 200 {object} util.Response{data=model.StudentTopicProgress}
// @Router /api/v1/progress/topics/{topicId}/lesson [put]
func (c *ProgressController) UpdateLessonProgress(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	topicID, ok := util.ParamID(ctx, "topicId")
	if !ok {
		return
	}
	var req UpdateLessonProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	progress, err := c.ProgressService.UpdateLessonProgress(sid, topicID, req.LessonIndex, req.SubheadingIndex, req.LessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CompleteTopic godoc
// @Summary Mark a topic completed
// @Description Needs study on at least five distinct days
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path int true "Topic ID"
// @Success 200 {object} util.Response{data=model.StudentTopicProgress}
// @Failure 400 {object} util.Response "Minimum 5-day requirement not met"
// @Failure 404 {object} util.Response "Progress record not found"
// @Router /api/v1/progress/topics/{topicId}/complete [post]
func (c *ProgressController) CompleteTopic(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	topicID, ok := util.ParamID(ctx, "topicId")
	if !ok {
		return
	}
	progress, err := c.ProgressService.CompleteTopic(sid, topicID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Topic completed", progress)
}

// GetTopicProgress godoc
// @Summary Progress on one topic
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path int true "Topic ID"
// @Success 200 {object} util.Response{data=model.StudentTopicProgress}
// @Router /api/v1/progress/topics/{topicId} [get]
func (c *ProgressController) GetTopicProgress(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	topicID, ok := util.ParamID(ctx, "topicId")
	if !ok {
		return
	}
	progress, err := c.ProgressService.GetTopicProgress(sid, topicID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// ListProgress godoc
// @Summary The caller's topic progress
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "completed or in_progress"
// @Success 200 {object} util.Response{data=[]model.StudentTopicProgress}
// @Router /api/v1/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	c.list(ctx, sid)
}

// StudentProgress godoc
// @Summary A student's topic progress
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Student ID"
// @Param status query string false "completed or in_progress"
// @Success 200 {object} util.Response{data=[]model.StudentTopicProgress}
// @Router /api/v1/students/{id}/progress [get]
func (c *ProgressController) StudentProgress(ctx *gin.Context) {
	sid, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	c.list(ctx, sid)
}

func (c *ProgressController) list(ctx *gin.Context, sid uint) {
	var (
		items interface{}
		err   error
	)
	switch ctx.Query("status") {
	case "completed":
		items, err = c.ProgressService.ListCompleted(sid)
	case "in_progress":
		items, err = c.ProgressService.ListInProgress(sid)
	case "":
		items, err = c.ProgressService.ListAll(sid)
	default:
		util.BadRequest(ctx, "invalid status filter")
		return
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// ResetTopicProgress godoc
// @Summary Delete a student's progress on a topic
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Student ID"
// @Param topicId path int true "Topic ID"
// @Success 200 {object} util.Response
// @Router /api/v1/students/{id}/progress/{topicId} [delete]
func (c *ProgressController) ResetTopicProgress(ctx *gin.Context) {
	sid, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	topicID, ok := util.ParamID(ctx, "topicId")
	if !ok {
		return
	}
	if err := c.ProgressService.ResetTopicProgress(sid, topicID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Progress reset", nil)
}

// ResetStale godoc
// @Summary Run the stale progress sweep now
// @Tags Progress
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/progress/reset-stale [post]
func (c *ProgressController) ResetStale(ctx *gin.Context) {
	n, err := c.ProgressService.CheckAndResetStaleProgress()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Stale progress reset", gin.H{"deleted": n})
}
