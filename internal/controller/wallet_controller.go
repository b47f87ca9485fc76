package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// WalletController exposes the ledger. Students act on their own wallet
// through /wallet/me; admins address wallets by student id.
type WalletController struct {
	WalletService *service.WalletService
}

func NewWalletController(wallet *service.WalletService) *WalletController {
	return &WalletController{WalletService: wallet}
}

type CreateWalletRequest struct {
	StudentID uint   `json:"studentId"`
	Currency  string `json:"currency"`
}

type UpdateWalletRequest struct {
	Currency string `json:"currency" binding:"required"`
}

type PollURLRequest struct {
	PollURL string `json:"pollUrl" binding:"required"`
}

// walletOwner resolves whose wallet the request acts on: the caller for
// students, the :studentId parameter for admins.
func walletOwner(ctx *gin.Context) (uint, bool) {
	p, _, ok := participant(ctx)
	if !ok {
		return 0, false
	}
	if p.Kind == model.ParticipantStudent {
		return p.RefID, true
	}
	return util.ParamID(ctx, "studentId")
}

// CreateWallet godoc
// @Summary Open a wallet
// @Description Students open their own; admins pass studentId
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateWalletRequest true "Wallet"
// @Success 201 {object} util.Response{data=model.Wallet}
// @Failure 409 {object} util.Response "Wallet already exists for this student"
// @Router /api/v1/wallets [post]
func (c *WalletController) CreateWallet(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	var req CreateWalletRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	owner := req.StudentID
	if p.Kind == model.ParticipantStudent {
		owner = p.RefID
	}
	if owner == 0 {
		util.BadRequest(ctx, "studentId is required")
		return
	}
	wallet, err := c.WalletService.CreateWallet(owner, req.Currency)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, wallet)
}

// MyWallet godoc
// @Summary The caller's wallet with its ledger
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Wallet}
// @Router /api/v1/wallets/me [get]
func (c *WalletController) MyWallet(ctx *gin.Context) {
	owner, ok := walletOwner(ctx)
	if !ok {
		return
	}
	wallet, err := c.WalletService.GetWalletByStudent(owner)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, wallet)
}

// WalletByStudent godoc
// @Summary A student's wallet
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} util.Response{data=model.Wallet}
// @Router /api/v1/wallets/students/{studentId} [get]
func (c *WalletController) WalletByStudent(ctx *gin.Context) {
	c.MyWallet(ctx)
}

// ListWallets godoc
// @Summary List wallets
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/wallets [get]
func (c *WalletController) ListWallets(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	wallets, total, err := c.WalletService.ListWallets(page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(wallets, total, page, limit))
}

// GetWallet godoc
// @Summary Get a wallet
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Wallet ID"
// @Success 200 {object} util.Response{data=model.Wallet}
// @Router /api/v1/wallets/{id} [get]
func (c *WalletController) GetWallet(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	wallet, err := c.WalletService.GetWallet(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, wallet)
}

// UpdateWallet godoc
// @Summary Change a wallet's currency
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Wallet ID"
// @Param body body UpdateWalletRequest true "Currency"
// @Success 200 {object} util.Response{data=model.Wallet}
// @Router /api/v1/wallets/{id} [put]
func (c *WalletController) UpdateWallet(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req UpdateWalletRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	wallet, err := c.WalletService.UpdateWallet(id, req.Currency)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, wallet)
}

// DeleteWallet godoc
// @Summary Delete a wallet and its ledger
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Wallet ID"
// @Success 200 {object} util.Response
// @Router /api/v1/wallets/{id} [delete]
func (c *WalletController) DeleteWallet(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.WalletService.DeleteWallet(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Wallet deleted", nil)
}

// Deposit godoc
// @Summary Record a deposit
// @Description Pending by default; only completed deposits credit the balance
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "Student ID"
// @Param body body service.DepositRequest true "Deposit"
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "Payment already exists"
// @Router /api/v1/wallets/students/{studentId}/deposits [post]
func (c *WalletController) Deposit(ctx *gin.Context) {
	owner, ok := walletOwner(ctx)
	if !ok {
		return
	}
	var req service.DepositRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	wallet, txn, err := c.WalletService.Deposit(owner, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"wallet": wallet, "transaction": txn})
}

// Withdraw godoc
// @Summary Withdraw from a wallet
// @Description Debits immediately; fails with 403 when the balance is too low
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.WithdrawRequest true "Withdrawal"
// @Success 201 {object} util.Response{data=object}
// @Failure 403 {object} util.Response "Insufficient balance"
// @Router /api/v1/wallets/me/withdrawals [post]
func (c *WalletController) Withdraw(ctx *gin.Context) {
	owner, ok := walletOwner(ctx)
	if !ok {
		return
	}
	var req service.WithdrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	wallet, txn, err := c.WalletService.Withdraw(owner, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"wallet": wallet, "transaction": txn})
}

// CompleteDeposit godoc
// @Summary Settle a pending deposit by poll URL
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body PollURLRequest true "Poll URL"
// @Success 200 {object} util.Response{data=model.WalletTransaction}
// @Failure 404 {object} util.Response "No pending deposit found for this poll URL"
// @Router /api/v1/wallets/deposits/complete [post]
func (c *WalletController) CompleteDeposit(ctx *gin.Context) {
	var req PollURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	txn, err := c.WalletService.CompleteDeposit(req.PollURL)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Deposit completed", txn)
}

// FailDeposit godoc
// @Summary Fail a pending deposit by poll URL
// @Tags Wallet
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body PollURLRequest true "Poll URL"
// @Success 200 {object} util.Response{data=model.WalletTransaction}
// @Router /api/v1/wallets/deposits/fail [post]
func (c *WalletController) FailDeposit(ctx *gin.Context) {
	var req PollURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	txn, err := c.WalletService.FailDeposit(req.PollURL)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Deposit failed", txn)
}

// Withdrawals godoc
// @Summary Active or expired withdrawals
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param state query string false "active (default) or expired"
// @Success 200 {object} util.Response{data=[]model.WalletTransaction}
// @Router /api/v1/wallets/me/withdrawals [get]
func (c *WalletController) Withdrawals(ctx *gin.Context) {
	owner, ok := walletOwner(ctx)
	if !ok {
		return
	}
	var (
		txns []model.WalletTransaction
		err  error
	)
	switch ctx.DefaultQuery("state", "active") {
	case "active":
		txns, err = c.WalletService.ActiveWithdrawals(owner)
	case "expired":
		txns, err = c.WalletService.ExpiredWithdrawals(owner)
	default:
		util.BadRequest(ctx, "state must be active or expired")
		return
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, txns)
}

// CheckExpired godoc
// @Summary Run the withdrawal expiry sweep now
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/wallets/withdrawals/check-expired [post]
func (c *WalletController) CheckExpired(ctx *gin.Context) {
	n, err := c.WalletService.CheckExpiredWithdrawals()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Expired withdrawals processed", gin.H{"expired": n})
}

// Reconcile godoc
// @Summary Compare a stored balance with its ledger
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "Student ID"
// @Success 200 {object} util.Response{data=service.BalanceReport}
// @Router /api/v1/wallets/students/{studentId}/reconcile [get]
func (c *WalletController) Reconcile(ctx *gin.Context) {
	owner, ok := walletOwner(ctx)
	if !ok {
		return
	}
	report, err := c.WalletService.ReconcileBalance(owner)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// Dashboard godoc
// @Summary Wallet totals and the latest wallets
// @Tags Wallet
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.WalletDashboard}
// @Router /api/v1/wallets/dashboard [get]
func (c *WalletController) Dashboard(ctx *gin.Context) {
	dash, err := c.WalletService.Dashboard(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dash)
}
