package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
	Hub         *service.ChatHub
}

func NewChatController(chatService *service.ChatService, hub *service.ChatHub) *ChatController {
	return &ChatController{ChatService: chatService, Hub: hub}
}

// otherParty reads the :kind/:id pair naming the other side of a conversation.
func otherParty(ctx *gin.Context) (model.Participant, bool) {
	kind := model.ParticipantKind(ctx.Param("kind"))
	if !kind.Valid() {
		util.BadRequest(ctx, "Invalid participant kind")
		return model.Participant{}, false
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return model.Participant{}, false
	}
	return model.Participant{Kind: kind, RefID: id}, true
}

// SendMessage godoc
// @Summary Send a direct message
// @Description JSON with a receiver object, or multipart with receiverKind, receiverId and images
// @Tags Chat
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SendChatRequest true "Message"
// @Success 201 {object} util.Response{data=model.ChatMessage}
// @Router /api/v1/chat/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}

	var req service.SendChatRequest
	var images []*multipart.FileHeader
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if err := ctx.ShouldBind(&req); err != nil {
			util.ValidationError(ctx, err)
			return
		}
		req.Receiver = model.Participant{
			Kind:  model.ParticipantKind(ctx.PostForm("receiverKind")),
			RefID: util.MustParseUint(ctx.PostForm("receiverId")),
		}
		if form, err := ctx.MultipartForm(); err == nil {
			images = form.File["images"]
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if !req.Receiver.Kind.Valid() || req.Receiver.RefID == 0 {
		util.BadRequest(ctx, "receiver is required")
		return
	}

	msg, err := c.ChatService.Send(ctx.Request.Context(), me, req, images)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

// Conversation godoc
// @Summary Messages between the caller and another participant
// @Tags Chat
// @Produce json
// @Security ApiKeyAuth
// @Param kind path string true "student or admin"
// @Param id path int true "Participant ID"
// @Success 200 {object} util.Response{data=[]model.ChatMessage}
// @Router /api/v1/chat/conversations/{kind}/{id} [get]
func (c *ChatController) Conversation(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	other, ok := otherParty(ctx)
	if !ok {
		return
	}
	msgs, err := c.ChatService.Conversation(me, other)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, msgs)
}

// MarkViewed godoc
// @Summary Mark a conversation as read
// @Tags Chat
// @Produce json
// @Security ApiKeyAuth
// @Param kind path string true "student or admin"
// @Param id path int true "Participant ID"
// @Success 200 {object} util.Response
// @Router /api/v1/chat/conversations/{kind}/{id}/viewed [put]
func (c *ChatController) MarkViewed(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	other, ok := otherParty(ctx)
	if !ok {
		return
	}
	n, err := c.ChatService.MarkViewed(me, other)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": n})
}

// DeleteConversation godoc
// @Summary Delete every message between two participants
// @Tags Chat
// @Produce json
// @Security ApiKeyAuth
// @Param kind path string true "student or admin"
// @Param id path int true "Participant ID"
// @Success 200 {object} util.Response
// @Router /api/v1/chat/conversations/{kind}/{id} [delete]
func (c *ChatController) DeleteConversation(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	other, ok := otherParty(ctx)
	if !ok {
		return
	}
	n, err := c.ChatService.DeleteConversation(me, other)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Conversation deleted", gin.H{"deleted": n})
}

// DeleteMessage godoc
// @Summary Delete one message
// @Tags Chat
// @Security ApiKeyAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} util.Response
// @Router /api/v1/chat/messages/{messageId} [delete]
func (c *ChatController) DeleteMessage(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "messageId")
	if !ok {
		return
	}
	if err := c.ChatService.DeleteMessage(ctx.Request.Context(), id, me); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Message deleted", nil)
}

// Partners godoc
// @Summary Everyone the caller has chatted with
// @Tags Chat
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ChatPartner}
// @Router /api/v1/chat/partners [get]
func (c *ChatController) Partners(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	partners, err := c.ChatService.Partners(me)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, partners)
}

// UnreadCount godoc
// @Summary Number of unread messages addressed to the caller
// @Tags Chat
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/v1/chat/unread [get]
func (c *ChatController) UnreadCount(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	n, err := c.ChatService.UnreadCount(me)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"unread": n})
}

// WebSocket godoc
// @Summary Realtime chat events
// @Description Upgrade to a websocket; the token may be passed as ?token=
// @Tags Chat
// @Security ApiKeyAuth
// @Router /api/v1/chat/ws [get]
func (c *ChatController) WebSocket(ctx *gin.Context) {
	me, _, ok := participant(ctx)
	if !ok {
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, me)
}
