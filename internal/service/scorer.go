package service

import (
	"bytes"
	"encoding/json"

	"quiz_backend/internal/model"
)

// Submission 题目 ID -> 作答内容，非字符串的作答按答错处理
type Submission map[string]interface{}

type ScoreResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Score 逐题精确比对（区分大小写），未作答或答错均不得分，submission 中的未知题目 ID 被忽略
func Score(questions []model.Question, answers Submission) ScoreResult {
	score := 0
	for _, q := range questions {
		if answer, ok := answers[q.ID].(string); ok && answer == q.CorrectAnswer {
			score++
		}
	}
	return ScoreResult{Score: score, Total: len(questions)}
}

// ParseSubmission 解析提交请求体，空请求体或 answers 不是对象时视为未作答，JSON 本身不合法时返回 ErrInvalidInput
func ParseSubmission(body []byte) (Submission, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var req struct {
		Answers json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalid("request body must be a JSON object")
	}

	var answers Submission
	if err := json.Unmarshal(req.Answers, &answers); err != nil {
		return nil, nil
	}
	return answers, nil
}
