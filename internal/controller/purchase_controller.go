package controller

import (
	"errors"
	"medprep_backend/internal/service"
	"medprep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PurchaseController struct {
	Service *service.PurchaseService
}

func NewPurchaseController(svc *service.PurchaseService) *PurchaseController {
	return &PurchaseController{Service: svc}
}

// @Summary 在售套餐列表
// @Tags 商城模块
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/packages [get]
func (c *PurchaseController) ListPackages(ctx *gin.Context) {
	pkgs, err := c.Service.ListPackages(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, pkgs)
}

// @Summary 我的购买记录
// @Tags 商城模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/purchases [get]
func (c *PurchaseController) ListPurchases(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	purchases, err := c.Service.ListPurchases(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, purchases)
}

type CheckoutReq struct {
	PackageID uint `json:"packageId" binding:"required"`
}

// @Summary 下单购买套餐
// @Description 创建待支付的购买记录，支付确认由账务回调完成
// @Tags 商城模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckoutReq true "套餐ID"
// @Success 201 {object} util.Response
// @Router /api/purchases/checkout [post]
func (c *PurchaseController) Checkout(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckoutReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	purchase, err := c.Service.Checkout(user.UserID, req.PackageID)
	if err != nil {
		if errors.Is(err, util.ErrPackageNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, purchase)
}

// @Summary 激活购买（账务确认回调）
// @Tags 商城模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "购买ID"
// @Success 200 {object} util.Response
// @Router /api/admin/purchases/{id}/activate [post]
func (c *PurchaseController) Activate(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid purchase id")
		return
	}

	purchase, err := c.Service.Activate(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrPurchaseNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPurchaseNotActive):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, purchase)
}
