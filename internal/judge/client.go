// Package judge 實作對外部 LLM 評審服務的呼叫。
//
// 評審走 OpenAI 相容的 chat completions 介面，要求模型以嚴格的
// JSON 回覆。呼叫有時限、可能失敗；失敗的兜底策略由服務層的
// ScorerAdapter 負責，這裡只拋出錯誤。
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"debate_arena/internal/models"
	"debate_arena/internal/service"
)

// Config 是評審客戶端的配置
type Config struct {
	BaseURL string // chat completions 端點，例如 https://api.openai.com/v1/chat/completions
	APIKey  string
	Model   string
}

// Client 是 service.Judge 的 HTTP 實作
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{},
	}
}

// chat completions 的請求與回應結構
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"` // "system" 或 "user"
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const scoreSystemPrompt = `你是辯論比賽的專業評審。根據辯題、發言者立場與先前的發言，為這條發言評分。
只回覆 JSON，格式如下，不要附加任何其他文字：
{"score": 0到10的數字, "reasoning": "評語", "strengths": ["優點"], "weaknesses": ["缺點"], "fallacies": ["邏輯謬誤"]}`

const verdictSystemPrompt = `你是辯論比賽的專業評審。根據完整的辯論記錄與各發言得分，判定勝方並總結整場辯論。
只回覆 JSON，格式如下，不要附加任何其他文字：
{"winner": "proponent"、"opponent" 或 "tie", "proponent_score": 數字, "opponent_score": 數字, "summary": "總結"}`

// ScoreArgument 請評審為單條發言評分
func (c *Client) ScoreArgument(ctx context.Context, req service.ScoreRequest) (*service.ArgumentScore, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "辯題：%s\n", req.Topic)
	fmt.Fprintf(&sb, "發言方：%s\n", sideLabel(req.Slot))
	fmt.Fprintf(&sb, "立場陳述：%s\n\n", req.Stance)
	if len(req.PriorArguments) > 0 {
		sb.WriteString("先前的發言：\n")
		for _, arg := range req.PriorArguments {
			fmt.Fprintf(&sb, "第%d回合 %s：%s\n", arg.Round, sideLabel(arg.Slot), arg.Content)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "請評分這條發言：\n%s", req.Content)

	content, err := c.complete(ctx, scoreSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var score service.ArgumentScore
	if err := json.Unmarshal(extractJSON(content), &score); err != nil {
		return nil, fmt.Errorf("評審回覆無法解析: %w", err)
	}
	if score.Score < 0 || score.Score > 10 {
		return nil, fmt.Errorf("評審回覆的分數超出範圍: %v", score.Score)
	}
	return &score, nil
}

// AnalyzeDebate 請評審對整場辯論做總評
func (c *Client) AnalyzeDebate(ctx context.Context, req service.VerdictRequest) (*service.DebateVerdict, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "辯題：%s\n", req.Topic)
	fmt.Fprintf(&sb, "正方立場：%s\n", req.ProponentStance)
	fmt.Fprintf(&sb, "反方立場：%s\n\n", req.OpponentStance)
	sb.WriteString("辯論記錄：\n")
	for _, arg := range req.Arguments {
		score := "未評分"
		if arg.Skipped {
			score = "0（超時跳過）"
		} else if arg.Score != nil {
			score = fmt.Sprintf("%.1f", *arg.Score)
		}
		fmt.Fprintf(&sb, "第%d回合 %s（得分 %s）：%s\n", arg.Round, sideLabel(arg.Slot), score, arg.Content)
	}

	content, err := c.complete(ctx, verdictSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var verdict service.DebateVerdict
	if err := json.Unmarshal(extractJSON(content), &verdict); err != nil {
		return nil, fmt.Errorf("評審回覆無法解析: %w", err)
	}
	return &verdict, nil
}

// complete 發出一次 chat completions 呼叫並取回模型回覆的文字
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("評審服務回覆 %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("評審回覆無法解析: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("評審服務沒有回覆內容")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// extractJSON 剝掉模型偶爾包上的 markdown 代碼框
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	return []byte(content)
}

func sideLabel(slot models.Slot) string {
	if slot == models.SlotOpponent {
		return "反方"
	}
	return "正方"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
