package controller

import (
	"encoding/json"
	"io"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
}

func NewPaymentController(payments *service.PaymentService) *PaymentController {
	return &PaymentController{PaymentService: payments}
}

type WebhookRequest struct {
	PollURL string `json:"pollUrl"`
	Status  string `json:"status"`
}

type UpdatePaymentStatusRequest struct {
	Status        model.PaymentRecordStatus `json:"status" binding:"required"`
	PaymentStatus model.GatewayState        `json:"paymentStatus"`
}

// MakePayment godoc
// @Summary Start a payment
// @Description Mobile-money methods are sent to the gateway; topUpWallet opens a pending deposit
// @Tags Payment
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.MakePaymentRequest true "Payment"
// @Success 201 {object} util.Response{data=model.Payment}
// @Failure 502 {object} util.Response "Payment gateway request failed"
// @Router /api/v1/payments [post]
func (c *PaymentController) MakePayment(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	var req service.MakePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if p.Kind == model.ParticipantStudent {
		req.StudentID = p.RefID
	}

	payment, err := c.PaymentService.MakePayment(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, payment)
}

// CheckStatus godoc
// @Summary Poll the gateway and reconcile
// @Tags Payment
// @Produce json
// @Security ApiKeyAuth
// @Param pollUrl query string true "Gateway poll URL"
// @Success 200 {object} util.Response{data=service.ReconcileResult}
// @Success 202 {object} util.Response{data=service.ReconcileResult} "Awaiting payment"
// @Failure 400 {object} util.Response "Payment cancelled or failed"
// @Router /api/v1/payments/status [get]
func (c *PaymentController) CheckStatus(ctx *gin.Context) {
	pollURL := strings.TrimSpace(ctx.Query("pollUrl"))
	if pollURL == "" {
		util.BadRequest(ctx, "pollUrl is required")
		return
	}
	res, err := c.PaymentService.CheckPaymentStatus(ctx.Request.Context(), pollURL)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	writeOutcome(ctx, res)
}

// Webhook godoc
// @Summary Gateway result callback
// @Description Accepts {pollUrl,status} JSON, confirmed by polling the gateway, or the gateway's signed notification body
// @Tags Payment
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} util.Response{data=service.ReconcileResult}
// @Failure 401 {object} util.Response "Invalid notification signature"
// @Router /api/v1/payments/webhook [post]
func (c *PaymentController) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
	if err != nil {
		util.BadRequest(ctx, "Unreadable request body")
		return
	}

	var res *service.ReconcileResult
	var simple WebhookRequest
	if json.Unmarshal(body, &simple) == nil && simple.PollURL != "" {
		res, err = c.PaymentService.Webhook(ctx.Request.Context(), simple.PollURL, simple.Status)
	} else {
		res, err = c.PaymentService.GatewayNotification(body)
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	// gateways retry on anything but 2xx, so a failed payment is still acknowledged
	if res.Outcome == service.OutcomeAwaiting {
		util.Accepted(ctx, res.Message, res)
		return
	}
	util.SuccessWithMessage(ctx, res.Message, res)
}

func writeOutcome(ctx *gin.Context, res *service.ReconcileResult) {
	switch res.Outcome {
	case service.OutcomeSettled, service.OutcomeAlreadySettled:
		util.SuccessWithMessage(ctx, res.Message, res)
	case service.OutcomeAwaiting:
		util.Accepted(ctx, res.Message, res)
	default:
		util.ErrorWithDetails(ctx, http.StatusBadRequest, res.Message, res)
	}
}

// GetPayment godoc
// @Summary Get a payment
// @Tags Payment
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} util.Response{data=model.Payment}
// @Router /api/v1/payments/{id} [get]
func (c *PaymentController) GetPayment(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	payment, err := c.PaymentService.GetPayment(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if p.Kind == model.ParticipantStudent && payment.StudentID != p.RefID {
		util.HandleError(ctx, util.ErrPaymentNotFound)
		return
	}
	util.Success(ctx, payment)
}

// ListPayments godoc
// @Summary List payments
// @Description Students only see their own payments
// @Tags Payment
// @Produce json
// @Security ApiKeyAuth
// @Param studentId query int false "Student ID"
// @Param status query string false "pending, completed or failed"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/v1/payments [get]
func (c *PaymentController) ListPayments(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	filter := repository.PaymentFilter{
		StudentID: util.MustParseUint(ctx.Query("studentId")),
		Status:    model.PaymentRecordStatus(ctx.Query("status")),
	}
	if p.Kind == model.ParticipantStudent {
		filter.StudentID = p.RefID
	}
	page, limit := util.Pagination(ctx)

	payments, total, err := c.PaymentService.ListPayments(filter, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(payments, total, page, limit))
}

// RecentPayments godoc
// @Summary Latest payments
// @Tags Payment
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "How many, default 5"
// @Success 200 {object} util.Response{data=[]model.Payment}
// @Router /api/v1/payments/recent [get]
func (c *PaymentController) RecentPayments(ctx *gin.Context) {
	limit := int(util.MustParseUint(ctx.Query("limit")))
	payments, err := c.PaymentService.RecentPayments(limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payments)
}

// Stats godoc
// @Summary Payment totals by status
// @Tags Payment
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=repository.PaymentStats}
// @Router /api/v1/payments/stats [get]
func (c *PaymentController) Stats(ctx *gin.Context) {
	stats, err := c.PaymentService.Stats()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// UpdateStatus godoc
// @Summary Override a payment status
// @Tags Payment
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Payment ID"
// @Param body body UpdatePaymentStatusRequest true "Status"
// @Success 200 {object} util.Response{data=model.Payment}
// @Router /api/v1/payments/{id}/status [put]
func (c *PaymentController) UpdateStatus(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req UpdatePaymentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	payment, err := c.PaymentService.UpdatePaymentStatus(id, req.Status, req.PaymentStatus)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// DeletePayment godoc
// @Summary Delete a payment record
// @Tags Payment
// @Security ApiKeyAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} util.Response
// @Router /api/v1/payments/{id} [delete]
func (c *PaymentController) DeletePayment(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.PaymentService.DeletePayment(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Payment deleted", nil)
}
