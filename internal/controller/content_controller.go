package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(content *service.ContentService) *ContentController {
	return &ContentController{ContentService: content}
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

type LifecycleRequest struct {
	Lifecycle model.Lifecycle `json:"lifecycle" binding:"required"`
}

type ReactionRequest struct {
	Type model.ReactionType `json:"type" binding:"required"`
}

// CreateContent godoc
// @Summary Create topic content
// @Description Lessons without an id get one assigned
// @Tags Content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.TopicContentRequest true "Content"
// @Success 201 {object} util.Response{data=model.TopicContent}
// @Router /api/v1/contents [post]
func (c *ContentController) CreateContent(ctx *gin.Context) {
	var req service.TopicContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	content, err := c.ContentService.CreateContent(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, content)
}

// ListContent godoc
// @Summary List topic content
// @Tags Content
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/contents [get]
func (c *ContentController) ListContent(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	items, total, err := c.ContentService.ListContent(page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(items, total, page, limit))
}

// GetContent godoc
// @Summary Get topic content
// @Tags Content
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Success 200 {object} util.Response{data=model.TopicContent}
// @Router /api/v1/contents/{id} [get]
func (c *ContentController) GetContent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	content, err := c.ContentService.GetContent(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// ContentByTopic godoc
// @Summary Content of a topic
// @Tags Content
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Topic ID"
// @Success 200 {object} util.Response{data=[]model.TopicContent}
// @Router /api/v1/topics/{id}/contents [get]
func (c *ContentController) ContentByTopic(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	items, err := c.ContentService.ContentByTopic(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// UpdateContent godoc
// @Summary Update topic content
// @Tags Content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param body body service.TopicContentRequest true "Content"
// @Success 200 {object} util.Response{data=model.TopicContent}
// @Router /api/v1/contents/{id} [put]
func (c *ContentController) UpdateContent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.TopicContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	content, err := c.ContentService.UpdateContent(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// UploadFile godoc
// @Summary Attach a file to topic content
// @Description Video uploads record their duration
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param file formData file true "Video, audio, image or PDF"
// @Success 200 {object} util.Response{data=model.TopicContent}
// @Router /api/v1/contents/{id}/files [post]
func (c *ContentController) UploadFile(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	content, err := c.ContentService.AttachFile(ctx.Request.Context(), id, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// DeleteContent godoc
// @Summary Delete topic content
// @Tags Content
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Success 200 {object} util.Response
// @Router /api/v1/contents/{id} [delete]
func (c *ContentController) DeleteContent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ContentService.DeleteContent(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Content deleted", nil)
}

// AddComment godoc
// @Summary Comment on topic content
// @Tags Comments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param body body CommentRequest true "Comment"
// @Success 201 {object} util.Response{data=model.Comment}
// @Router /api/v1/contents/{id}/comments [post]
func (c *ContentController) AddComment(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	comment, err := c.ContentService.AddComment(id, sid, req.Body)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, comment)
}

// Comments godoc
// @Summary Comments of topic content
// @Description Admins may pass state=trashed to review the trash
// @Tags Comments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param state query string false "active or trashed"
// @Success 200 {object} util.Response{data=[]model.Comment}
// @Router /api/v1/contents/{id}/comments [get]
func (c *ContentController) Comments(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	state := model.Lifecycle(ctx.Query("state"))
	if !isAdmin(ctx) {
		state = model.LifecycleActive
	}
	comments, err := c.ContentService.Comments(id, state)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comments)
}

// EditComment godoc
// @Summary Edit one's own comment
// @Tags Comments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Comment ID"
// @Param body body CommentRequest true "Comment"
// @Success 200 {object} util.Response{data=model.Comment}
// @Router /api/v1/comments/{id} [put]
func (c *ContentController) EditComment(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	comment, err := c.ContentService.EditComment(id, sid, req.Body)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comment)
}

// MoveComment godoc
// @Summary Trash, restore or purge a comment
// @Description Authors manage their own comments; admins manage all
// @Tags Comments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Comment ID"
// @Param body body LifecycleRequest true "Target state"
// @Success 200 {object} util.Response{data=model.Comment}
// @Failure 400 {object} util.Response "Invalid lifecycle transition"
// @Router /api/v1/comments/{id}/lifecycle [patch]
func (c *ContentController) MoveComment(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req LifecycleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	var actor uint
	if p.Kind == model.ParticipantStudent {
		actor = p.RefID
	}
	comment, err := c.ContentService.MoveComment(id, actor, req.Lifecycle)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if comment == nil {
		util.SuccessWithMessage(ctx, "Comment purged", nil)
		return
	}
	util.Success(ctx, comment)
}

// React godoc
// @Summary React to topic content
// @Description A student holds at most one reaction per content; reacting again replaces it
// @Tags Reactions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Param body body ReactionRequest true "Reaction"
// @Success 200 {object} util.Response{data=service.ReactionSummary}
// @Router /api/v1/contents/{id}/reactions [post]
func (c *ContentController) React(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req ReactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	summary, err := c.ContentService.React(id, sid, req.Type)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// Unreact godoc
// @Summary Remove one's reaction
// @Tags Reactions
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Success 200 {object} util.Response{data=service.ReactionSummary}
// @Router /api/v1/contents/{id}/reactions [delete]
func (c *ContentController) Unreact(ctx *gin.Context) {
	sid, ok := studentID(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	summary, err := c.ContentService.Unreact(id, sid)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// Reactions godoc
// @Summary Reaction counts of topic content
// @Tags Reactions
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Content ID"
// @Success 200 {object} util.Response{data=service.ReactionSummary}
// @Router /api/v1/contents/{id}/reactions [get]
func (c *ContentController) Reactions(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	summary, err := c.ContentService.Reactions(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// statusFor picks 201 for a fresh row and 200 for an update.
func statusFor(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
