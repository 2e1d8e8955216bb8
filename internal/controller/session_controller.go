package controller

import (
	"errors"
	"medprep_backend/internal/service"
	"medprep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Service       *service.SessionService
	ResultService *service.ResultService
}

func NewSessionController(svc *service.SessionService, resultSvc *service.ResultService) *SessionController {
	return &SessionController{Service: svc, ResultService: resultSvc}
}

type StartSessionReq struct {
	PurchaseID uint `json:"purchaseId" binding:"required"`
}

// @Summary 开始一场答题
// @Description 校验购买配额后抽题建卷，题量与抽题策略由套餐决定
// @Tags 答题模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StartSessionReq true "购买ID"
// @Success 201 {object} util.Response
// @Router /api/sessions [post]
func (c *SessionController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartSessionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.Service.Start(user.UserID, req.PurchaseID)
	if err != nil {
		c.writeSessionError(ctx, err)
		return
	}

	util.Created(ctx, session)
}

// @Summary 历史答题列表
// @Tags 答题模块
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/sessions [get]
func (c *SessionController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	sessions, total, err := c.Service.ListSessions(user.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": sessions, "total": total})
}

// @Summary 获取会话题单（作答视图，不含答案）
// @Tags 答题模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/questions [get]
func (c *SessionController) GetQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, questions, err := c.Service.GetQuestions(ctx.Param("id"), user.UserID)
	if err != nil {
		c.writeSessionError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"session": session, "questions": questions})
}

type SubmitAnswerReq struct {
	VariationID    uint   `json:"variationId" binding:"required"`
	SelectedAnswer string `json:"selectedAnswer" binding:"required"`
}

// @Summary 提交作答
// @Description 同一题重复提交会覆盖之前的作答；会话完成后拒绝提交
// @Tags 答题模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param body body SubmitAnswerReq true "作答内容（选项原文或字母标签）"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/answers [post]
func (c *SessionController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitAnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	isCorrect, err := c.Service.Answer(ctx.Param("id"), user.UserID, req.VariationID, req.SelectedAnswer)
	if err != nil {
		c.writeSessionError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"isCorrect": isCorrect})
}

// @Summary 交卷
// @Description 幂等：已完成的会话重复交卷返回原结果
// @Tags 答题模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/complete [post]
func (c *SessionController) Complete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.Service.Complete(ctx.Param("id"), user.UserID)
	if err != nil {
		c.writeSessionError(ctx, err)
		return
	}

	util.Success(ctx, session)
}

// @Summary 答题结果复盘
// @Description 仅对已完成的会话开放，含每题选项、正确标记与作答对照
// @Tags 答题模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/results [get]
func (c *SessionController) GetResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ResultService.GetResults(ctx.Param("id"), user.UserID)
	if err != nil {
		c.writeSessionError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// writeSessionError 把业务错误映射为HTTP状态码
func (c *SessionController) writeSessionError(ctx *gin.Context, err error) {
	var insufficient *util.InsufficientQuestionsError

	switch {
	case errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrPurchaseNotFound),
		errors.Is(err, util.ErrVariationNotFound),
		errors.Is(err, util.ErrQuestionNotInSession):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrPurchaseNotActive),
		errors.Is(err, util.ErrPurchaseExhausted),
		errors.Is(err, util.ErrSessionFinished),
		errors.Is(err, util.ErrSessionNotComplete):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPurchaseConflict):
		util.Conflict(ctx, err.Error())
	case errors.As(err, &insufficient):
		util.UnprocessableEntity(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
