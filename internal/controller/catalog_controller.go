package controller

import (
	"errors"
	"medprep_backend/internal/service"
	"medprep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	Service *service.CatalogService
}

func NewCatalogController(svc *service.CatalogService) *CatalogController {
	return &CatalogController{Service: svc}
}

type CreateSpecialtyReq struct {
	Name string `json:"name" binding:"required"`
}

// @Summary 创建专科
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateSpecialtyReq true "专科名称"
// @Success 201 {object} util.Response
// @Router /api/admin/specialties [post]
func (c *CatalogController) CreateSpecialty(ctx *gin.Context) {
	var req CreateSpecialtyReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	specialty, err := c.Service.CreateSpecialty(req.Name)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, specialty)
}

// @Summary 专科列表
// @Tags 题库管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/specialties [get]
func (c *CatalogController) ListSpecialties(ctx *gin.Context) {
	specialties, err := c.Service.ListSpecialties()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, specialties)
}

// @Summary 创建主题
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TopicReq true "主题信息"
// @Success 201 {object} util.Response
// @Router /api/admin/topics [post]
func (c *CatalogController) CreateTopic(ctx *gin.Context) {
	var req service.TopicReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.Service.CreateTopic(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, topic)
}

// @Summary 主题列表
// @Tags 题库管理
// @Produce json
// @Security BearerAuth
// @Param specialtyId query int false "按专科过滤"
// @Success 200 {object} util.Response
// @Router /api/admin/topics [get]
func (c *CatalogController) ListTopics(ctx *gin.Context) {
	specialtyID, _ := strconv.ParseUint(ctx.DefaultQuery("specialtyId", "0"), 10, 64)

	topics, err := c.Service.ListTopics(uint(specialtyID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, topics)
}

type UpdateWeightReq struct {
	WeightPercentage *float64 `json:"weightPercentage"`
}

// @Summary 更新主题抽题权重
// @Description weightPercentage 传 null 表示退出加权抽样
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "主题ID"
// @Param body body UpdateWeightReq true "权重（0-100]"
// @Success 200 {object} util.Response
// @Router /api/admin/topics/{id}/weight [patch]
func (c *CatalogController) UpdateTopicWeight(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid topic id")
		return
	}

	var req UpdateWeightReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.Service.UpdateTopicWeight(uint(id), req.WeightPercentage)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, topic)
}

// @Summary 新建题目
// @Description 创建底层题目的第一个措辞变体，选项中恰好一个正确
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionReq true "题目信息"
// @Success 201 {object} util.Response
// @Router /api/admin/questions [post]
func (c *CatalogController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	variation, err := c.Service.CreateQuestion(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, variation)
}

// @Summary 为底层题目追加措辞变体
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param baseId path int true "底层题目ID"
// @Param body body service.QuestionReq true "变体信息"
// @Success 201 {object} util.Response
// @Router /api/admin/questions/{baseId}/variations [post]
func (c *CatalogController) AddVariation(ctx *gin.Context) {
	baseID, err := strconv.ParseUint(ctx.Param("baseId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid base question id")
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	variation, err := c.Service.AddVariation(uint(baseID), req)
	if err != nil {
		if errors.Is(err, util.ErrVariationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, variation)
}

// @Summary 修订题目变体
// @Description 生成同题位 version+1 的新记录，旧版本自动退出抽题
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "变体ID"
// @Param body body service.QuestionReq true "修订内容"
// @Success 201 {object} util.Response
// @Router /api/admin/variations/{id}/revisions [post]
func (c *CatalogController) ReviseVariation(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid variation id")
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	variation, err := c.Service.ReviseVariation(uint(id), req)
	if err != nil {
		if errors.Is(err, util.ErrVariationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, variation)
}

type SetVisibilityReq struct {
	IsVisible *bool `json:"isVisible" binding:"required"`
}

// @Summary 上架/下架题目变体
// @Tags 题库管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "变体ID"
// @Param body body SetVisibilityReq true "可见性"
// @Success 200 {object} util.Response
// @Router /api/admin/variations/{id}/visibility [patch]
func (c *CatalogController) SetVisibility(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid variation id")
		return
	}

	var req SetVisibilityReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.SetVisibility(uint(id), *req.IsVisible); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": id, "isVisible": *req.IsVisible})
}

// @Summary 上传题干配图
// @Tags 题库管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "变体ID"
// @Param file formData file true "图片文件"
// @Success 200 {object} util.Response
// @Router /api/admin/variations/{id}/image [post]
func (c *CatalogController) UploadImage(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid variation id")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.Service.AttachImage(
		ctx.Request.Context(),
		uint(id),
		fileHeader.Filename,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		if errors.Is(err, util.ErrVariationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}
