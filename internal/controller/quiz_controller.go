package controller

import (
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// ListQuizzes godoc
// @Summary 获取测验列表
// @Description 只返回测验元数据与题目数量，不包含题目
// @Tags 测验
// @Produce json
// @Success 200 {array} model.QuizSummary
// @Failure 500 {object} util.Response
// @Router /quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	quizzes, err := c.QuizService.ListQuizzes(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, quizzes)
}

// CreateQuiz godoc
// @Summary 创建测验
// @Tags 测验
// @Accept json
// @Produce json
// @Param body body service.CreateQuizRequest true "测验内容"
// @Success 201 {object} model.Quiz
// @Failure 400 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Invalid request body")
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// GetQuiz godoc
// @Summary 获取单个测验
// @Description 返回的题目不包含正确答案
// @Tags 测验
// @Produce json
// @Param id path string true "测验ID"
// @Success 200 {object} model.PublicQuiz
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Description 只覆盖请求中出现的字段，传入 questions 时整体替换题目
// @Tags 测验
// @Accept json
// @Produce json
// @Param id path string true "测验ID"
// @Param body body service.UpdateQuizRequest true "需要更新的字段"
// @Success 200 {object} model.Quiz
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	var req service.UpdateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Invalid request body")
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验
// @Produce json
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Quiz deleted successfully"})
}

// SubmitQuiz godoc
// @Summary 提交答案并评分
// @Description 结果不落库，answers 为 题目ID -> 答案，非字符串答案按答错处理
// @Tags 测验
// @Accept json
// @Produce json
// @Param id path string true "测验ID"
// @Param body body service.SubmitQuizRequest true "作答"
// @Success 200 {object} service.ScoreResult
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		util.BadRequest(ctx, "Invalid request body")
		return
	}

	result, err := c.QuizService.SubmitQuizBody(ctx.Request.Context(), ctx.Param("id"), body)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
