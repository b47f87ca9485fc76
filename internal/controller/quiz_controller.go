package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizzes *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizzes}
}

// UpsertQuiz godoc
// @Summary Create or replace the quiz of a lesson
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizRequest true "Quiz"
// @Success 200 {object} util.Response{data=model.Quiz} "Updated"
// @Success 201 {object} util.Response{data=model.Quiz} "Created"
// @Router /api/v1/quizzes [put]
func (c *QuizController) UpsertQuiz(ctx *gin.Context) {
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	quiz, created, err := c.QuizService.UpsertQuiz(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.JSON(statusFor(created), util.Response{Message: "success", Data: quiz})
}

// ListQuizzes godoc
// @Summary List quizzes by lifecycle
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param state query string false "active (default) or trashed"
// @Param contentId query int false "Topic content"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /api/v1/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	state := model.Lifecycle(ctx.Query("state"))
	quizzes, err := c.QuizService.ListQuizzes(state, util.MustParseUint(ctx.Query("contentId")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// QuizForLesson godoc
// @Summary Active quiz of a lesson
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/v1/contents/{id}/lessons/{lessonId}/quiz [get]
func (c *QuizController) QuizForLesson(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	quiz, err := c.QuizService.QuizForLesson(id, ctx.Param("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetQuiz godoc
// @Summary Get a quiz in any state
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/v1/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	quiz, err := c.QuizService.GetQuiz(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// MoveQuiz godoc
// @Summary Trash, restore or purge one quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body LifecycleRequest true "Target state"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "Invalid lifecycle transition"
// @Router /api/v1/quizzes/{id}/lifecycle [patch]
func (c *QuizController) MoveQuiz(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req LifecycleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	quiz, err := c.QuizService.MoveQuiz(id, req.Lifecycle)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if quiz == nil {
		util.SuccessWithMessage(ctx, "Quiz purged", nil)
		return
	}
	util.Success(ctx, quiz)
}

// TrashByContent godoc
// @Summary Trash the quizzes of a content, or of one lesson
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param lessonId query string false "Lesson ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/contents/{id}/quizzes/trash [post]
func (c *QuizController) TrashByContent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	n, err := c.QuizService.TrashByContent(id, ctx.Query("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Quizzes moved to trash", gin.H{"count": n})
}

// RestoreByContent godoc
// @Summary Restore the trashed quizzes of a content, or of one lesson
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param lessonId query string false "Lesson ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/contents/{id}/quizzes/restore [post]
func (c *QuizController) RestoreByContent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	n, err := c.QuizService.RestoreByContent(id, ctx.Query("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Quizzes restored", gin.H{"count": n})
}

// PurgeTrashed godoc
// @Summary Permanently delete trashed quizzes
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param contentId query int false "Limit to one topic content"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/quizzes/trash [delete]
func (c *QuizController) PurgeTrashed(ctx *gin.Context) {
	n, err := c.QuizService.PurgeTrashed(util.MustParseUint(ctx.Query("contentId")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Trashed quizzes purged", gin.H{"count": n})
}

// Counts godoc
// @Summary Quiz counts per lifecycle state
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/quizzes/counts [get]
func (c *QuizController) Counts(ctx *gin.Context) {
	counts, err := c.QuizService.Counts()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, counts)
}
