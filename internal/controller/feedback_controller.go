package controller

import (
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FeedbackController struct {
	FeedbackService *service.FeedbackService
}

func NewFeedbackController(feedbackService *service.FeedbackService) *FeedbackController {
	return &FeedbackController{FeedbackService: feedbackService}
}

// GenerateFeedback godoc
// @Summary 生成测验反馈
// @Description 优先使用 AI 生成个性化反馈，AI 不可用时按分数段返回预设文案
// @Tags 反馈
// @Accept json
// @Produce json
// @Param body body service.FeedbackRequest true "主题与得分"
// @Success 200 {object} service.FeedbackResult
// @Failure 400 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /feedback [post]
func (c *FeedbackController) GenerateFeedback(ctx *gin.Context) {
	var req service.FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Invalid request body")
		return
	}

	result, err := c.FeedbackService.Generate(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
