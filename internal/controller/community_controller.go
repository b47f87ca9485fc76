package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
)

type CommunityController struct {
	CommunityService *service.CommunityService
}

func NewCommunityController(communityService *service.CommunityService) *CommunityController {
	return &CommunityController{CommunityService: communityService}
}

// MemberRequest names the account an admin adds or removes. Students always
// act on themselves and may send an empty body.
type MemberRequest struct {
	Kind model.ParticipantKind `json:"kind"`
	ID   uint                  `json:"id"`
}

// memberFromRequest resolves whose membership the request changes.
func memberFromRequest(ctx *gin.Context) (model.Participant, bool) {
	p, _, ok := participant(ctx)
	if !ok {
		return model.Participant{}, false
	}
	var req MemberRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.ValidationError(ctx, err)
			return model.Participant{}, false
		}
	}
	if p.Kind == model.ParticipantStudent || req.ID == 0 {
		return p, true
	}
	target := model.Participant{Kind: req.Kind, RefID: req.ID}
	if !target.Kind.Valid() {
		util.BadRequest(ctx, "Invalid participant kind")
		return model.Participant{}, false
	}
	return target, true
}

// CreateCommunity godoc
// @Summary Create a community
// @Tags Community
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param name formData string true "Name"
// @Param subjectId formData int false "Subject ID"
// @Param level formData string false "O Level or A Level"
// @Param showCommunity formData bool false "Visible to students"
// @Param file formData file false "Profile picture"
// @Success 201 {object} util.Response{data=model.Community}
// @Router /api/v1/communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	var req service.CommunityRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	picture, _ := ctx.FormFile("file")
	community, err := c.CommunityService.CreateCommunity(ctx.Request.Context(), req, picture)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, community)
}

// ListCommunities godoc
// @Summary List communities
// @Description Students only see communities marked visible
// @Tags Community
// @Produce json
// @Security ApiKeyAuth
// @Param level query string false "Level"
// @Param subjectId query int false "Subject ID"
// @Success 200 {object} util.Response{data=[]model.Community}
// @Router /api/v1/communities [get]
func (c *CommunityController) ListCommunities(ctx *gin.Context) {
	level := model.StudentLevel(ctx.Query("level"))
	subjectID := util.MustParseUint(ctx.Query("subjectId"))
	communities, err := c.CommunityService.ListCommunities(level, subjectID, !isAdmin(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, communities)
}

// MyCommunities godoc
// @Summary Communities the caller belongs to
// @Tags Community
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Community}
// @Router /api/v1/communities/mine [get]
func (c *CommunityController) MyCommunities(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	communities, err := c.CommunityService.MyCommunities(p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, communities)
}

// GetCommunity godoc
// @Summary Get a community with its members
// @Tags Community
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response{data=model.Community}
// @Router /api/v1/communities/{id} [get]
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	community, err := c.CommunityService.GetCommunity(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !community.ShowCommunity && !isAdmin(ctx) {
		util.HandleError(ctx, util.ErrCommunityNotFound)
		return
	}
	util.Success(ctx, community)
}

// UpdateCommunity godoc
// @Summary Update a community
// @Tags Community
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Param body body service.CommunityRequest true "Community"
// @Success 200 {object} util.Response{data=model.Community}
// @Router /api/v1/communities/{id} [put]
func (c *CommunityController) UpdateCommunity(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.CommunityRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	community, err := c.CommunityService.UpdateCommunity(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, community)
}

// DeleteCommunity godoc
// @Summary Delete a community
// @Tags Community
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Success 200 {object} util.Response
// @Router /api/v1/communities/{id} [delete]
func (c *CommunityController) DeleteCommunity(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CommunityService.DeleteCommunity(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Community deleted", nil)
}

// Join godoc
// @Summary Add a member
// @Description Students join themselves; admins may name any participant
// @Tags Community
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Param body body MemberRequest false "Member"
// @Success 200 {object} util.Response{data=model.Community}
// @Failure 409 {object} util.Response "Participant already exists in community"
// @Router /api/v1/communities/{id}/members [post]
func (c *CommunityController) Join(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	member, ok := memberFromRequest(ctx)
	if !ok {
		return
	}
	community, err := c.CommunityService.AddMember(id, member)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Participant added", community)
}

// Leave godoc
// @Summary Remove a member
// @Tags Community
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Param body body MemberRequest false "Member"
// @Success 200 {object} util.Response{data=model.Community}
// @Router /api/v1/communities/{id}/members [delete]
func (c *CommunityController) Leave(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	member, ok := memberFromRequest(ctx)
	if !ok {
		return
	}
	community, err := c.CommunityService.RemoveMember(id, member)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Participant removed", community)
}

// PostMessage godoc
// @Summary Post to a community
// @Tags Community
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Param message formData string false "Text"
// @Param images formData file false "Images"
// @Success 201 {object} util.Response{data=service.CommunityMessageView}
// @Failure 403 {object} util.Response "Join the community before posting"
// @Router /api/v1/communities/{id}/messages [post]
func (c *CommunityController) PostMessage(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	text, images := messageForm(ctx)
	msg, err := c.CommunityService.PostMessage(ctx.Request.Context(), id, p, text, images)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

// Messages godoc
// @Summary Community messages, newest first
// @Tags Community
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Community ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/v1/communities/{id}/messages [get]
func (c *CommunityController) Messages(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)
	msgs, total, err := c.CommunityService.Messages(id, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(msgs, total, page, limit))
}

// DeleteMessage godoc
// @Summary Delete a community message
// @Tags Community
// @Security ApiKeyAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} util.Response
// @Router /api/v1/communities/messages/{messageId} [delete]
func (c *CommunityController) DeleteMessage(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "messageId")
	if !ok {
		return
	}
	if err := c.CommunityService.DeleteMessage(ctx.Request.Context(), id, p); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Message deleted", nil)
}

// messageForm reads the text and image attachments of a multipart message.
// A JSON body is accepted too, without attachments.
func messageForm(ctx *gin.Context) (string, []*multipart.FileHeader) {
	if !strings.HasPrefix(ctx.ContentType(), "multipart/") {
		var body struct {
			Message string `json:"message"`
		}
		_ = ctx.ShouldBindJSON(&body)
		return body.Message, nil
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		return "", nil
	}
	return ctx.PostForm("message"), form.File["images"]
}
