package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CatalogController serves subjects, topics and home banners. Students only
// see rows flagged visible; admins see everything.
type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalog}
}

// CreateSubject godoc
// @Summary Create a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubjectRequest true "Subject"
// @Success 201 {object} util.Response{data=model.Subject}
// @Router /api/v1/subjects [post]
func (c *CatalogController) CreateSubject(ctx *gin.Context) {
	var req service.SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	subject, err := c.CatalogService.CreateSubject(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// ListSubjects godoc
// @Summary List subjects, optionally by level
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param level query string false "Level"
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/v1/subjects [get]
func (c *CatalogController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.CatalogService.ListSubjects(model.StudentLevel(ctx.Query("level")), !isAdmin(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// GetSubject godoc
// @Summary Get a subject
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} util.Response{data=model.Subject}
// @Failure 404 {object} util.Response
// @Router /api/v1/subjects/{id} [get]
func (c *CatalogController) GetSubject(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	subject, err := c.CatalogService.GetSubject(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// UpdateSubject godoc
// @Summary Update a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Param body body service.SubjectRequest true "Subject"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /api/v1/subjects/{id} [put]
func (c *CatalogController) UpdateSubject(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	subject, err := c.CatalogService.UpdateSubject(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// UploadSubjectImage godoc
// @Summary Upload a subject image
// @Tags Catalog
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Param file formData file true "Image"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /api/v1/subjects/{id}/image [post]
func (c *CatalogController) UploadSubjectImage(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	subject, err := c.CatalogService.UploadSubjectImage(ctx.Request.Context(), id, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// DeleteSubject godoc
// @Summary Delete a subject without topics
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "Subject still has topics"
// @Router /api/v1/subjects/{id} [delete]
func (c *CatalogController) DeleteSubject(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteSubject(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Subject deleted", nil)
}

// CreateTopic godoc
// @Summary Create a topic
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.TopicRequest true "Topic"
// @Success 201 {object} util.Response{data=model.Topic}
// @Router /api/v1/topics [post]
func (c *CatalogController) CreateTopic(ctx *gin.Context) {
	var req service.TopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	topic, err := c.CatalogService.CreateTopic(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, topic)
}

// ListTopics godoc
// @Summary List topics
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/topics [get]
func (c *CatalogController) ListTopics(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	topics, total, err := c.CatalogService.ListTopics(page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(topics, total, page, limit))
}

// GetTopic godoc
// @Summary Get a topic
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Topic ID"
// @Success 200 {object} util.Response{data=model.Topic}
// @Router /api/v1/topics/{id} [get]
func (c *CatalogController) GetTopic(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	topic, err := c.CatalogService.GetTopic(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// TopicsBySubject godoc
// @Summary Topics of a subject
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} util.Response{data=[]model.Topic}
// @Router /api/v1/subjects/{id}/topics [get]
func (c *CatalogController) TopicsBySubject(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	topics, err := c.CatalogService.TopicsBySubject(id, !isAdmin(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// RandomTopics godoc
// @Summary Five random visible topics of a subject
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} util.Response{data=[]model.Topic}
// @Router /api/v1/subjects/{id}/topics/random [get]
func (c *CatalogController) RandomTopics(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	topics, err := c.CatalogService.RandomTopics(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// UpdateTopic godoc
// @Summary Update a topic
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Topic ID"
// @Param body body service.TopicRequest true "Topic"
// @Success 200 {object} util.Response{data=model.Topic}
// @Router /api/v1/topics/{id} [put]
func (c *CatalogController) UpdateTopic(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.TopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	topic, err := c.CatalogService.UpdateTopic(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// DeleteTopic godoc
// @Summary Delete a topic
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Topic ID"
// @Success 200 {object} util.Response
// @Router /api/v1/topics/{id} [delete]
func (c *CatalogController) DeleteTopic(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteTopic(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Topic deleted", nil)
}

// CreateBanner godoc
// @Summary Create a home banner
// @Tags Banners
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param title formData string false "Title"
// @Param link formData string false "Link"
// @Param imageUrl formData string false "Image URL when no file is sent"
// @Param file formData file false "Image"
// @Success 201 {object} util.Response{data=model.HomeBanner}
// @Router /api/v1/banners [post]
func (c *CatalogController) CreateBanner(ctx *gin.Context) {
	var req service.BannerRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	image, _ := ctx.FormFile("file")
	banner, err := c.CatalogService.CreateBanner(ctx.Request.Context(), req, image)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, banner)
}

// ListBanners godoc
// @Summary List home banners
// @Tags Banners
// @Produce json
// @Param all query bool false "Include hidden banners (admins)"
// @Success 200 {object} util.Response{data=[]model.HomeBanner}
// @Router /api/v1/banners [get]
func (c *CatalogController) ListBanners(ctx *gin.Context) {
	visibleOnly := !(isAdmin(ctx) && queryBool(ctx, "all"))
	banners, err := c.CatalogService.ListBanners(visibleOnly)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, banners)
}

// GetBanner godoc
// @Summary Get a banner
// @Tags Banners
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Banner ID"
// @Success 200 {object} util.Response{data=model.HomeBanner}
// @Router /api/v1/banners/{id} [get]
func (c *CatalogController) GetBanner(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	banner, err := c.CatalogService.GetBanner(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, banner)
}

// UpdateBanner godoc
// @Summary Update a banner
// @Tags Banners
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Banner ID"
// @Param body body service.BannerRequest true "Banner"
// @Success 200 {object} util.Response{data=model.HomeBanner}
// @Router /api/v1/banners/{id} [put]
func (c *CatalogController) UpdateBanner(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.BannerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	banner, err := c.CatalogService.UpdateBanner(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, banner)
}

// DeleteBanner godoc
// @Summary Delete a banner
// @Tags Banners
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Banner ID"
// @Success 200 {object} util.Response
// @Router /api/v1/banners/{id} [delete]
func (c *CatalogController) DeleteBanner(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteBanner(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Banner deleted", nil)
}
