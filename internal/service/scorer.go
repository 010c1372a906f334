package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"debate_arena/internal/models"
)

// ArgumentScore 是評審對單條發言的評分結果
type ArgumentScore struct {
	Score      float64  `json:"score"` // 0 到 10
	Reasoning  string   `json:"reasoning"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
	Fallacies  []string `json:"fallacies,omitempty"`
}

// DebateVerdict 是評審對整場辯論的總評
type DebateVerdict struct {
	Winner         string  `json:"winner"` // proponent / opponent / tie
	ProponentScore float64 `json:"proponent_score"`
	OpponentScore  float64 `json:"opponent_score"`
	Summary        string  `json:"summary"`
}

// ScoreRequest 是單條發言的評分請求
type ScoreRequest struct {
	Topic          string
	Slot           models.Slot
	Stance         string
	Content        string
	PriorArguments []models.Argument
}

// VerdictRequest 是整場辯論的總評請求
type VerdictRequest struct {
	Topic           string
	ProponentStance string
	OpponentStance  string
	Arguments       []models.Argument
}

// Judge 是外部 LLM 評審的抽象。兩個呼叫都可能失敗，
// 失敗時由 ScorerAdapter 的後備策略兜底。
type Judge interface {
	ScoreArgument(ctx context.Context, req ScoreRequest) (*ArgumentScore, error)
	AnalyzeDebate(ctx context.Context, req VerdictRequest) (*DebateVerdict, error)
}

// 評審不可用時的後備分數。發言照常記錄、輪次照常推進，
// 辯論引擎的活性不跟著評審陪葬。
const (
	FallbackScore = 5.0
	FallbackNote  = "評分服務暫時無法使用"
)

// ScorerAdapter 把辯論事件轉成評審呼叫，並負責重試與後備策略
type ScorerAdapter struct {
	judge   Judge
	timeout time.Duration
	retries int
}

func NewScorerAdapter(judge Judge, timeout time.Duration) *ScorerAdapter {
	return &ScorerAdapter{
		judge:   judge,
		timeout: timeout,
		retries: 1,
	}
}

// ScoreArgument 取得一條發言的評分。評審失敗時回傳固定的中性
// 後備分數，永遠不會讓呼叫方失敗。回傳值依序是評分與評分來源
// （judge 或 fallback）。
func (a *ScorerAdapter) ScoreArgument(ctx context.Context, req ScoreRequest) (*ArgumentScore, string) {
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		score, err := a.judge.ScoreArgument(callCtx, req)
		cancel()
		if err == nil {
			score.Score = clampScore(score.Score)
			return score, models.ScoreSourceJudge
		}
		lastErr = err
	}
	log.Printf("judge score failed, using fallback: %v", lastErr)

	return &ArgumentScore{
		Score:     FallbackScore,
		Reasoning: FallbackNote,
	}, models.ScoreSourceFallback
}

// AnalyzeDebate 取得整場辯論的總評。評審失敗時退回用
// 雙方平均分比較決定勝負。
func (a *ScorerAdapter) AnalyzeDebate(ctx context.Context, req VerdictRequest) (*DebateVerdict, string) {
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		verdict, err := a.judge.AnalyzeDebate(callCtx, req)
		cancel()
		if err == nil && validWinner(verdict.Winner) {
			return verdict, models.ScoreSourceJudge
		}
		if err == nil {
			log.Printf("judge verdict has invalid winner %q, using fallback", verdict.Winner)
			break
		}
		lastErr = err
	}
	if lastErr != nil {
		log.Printf("judge analyze failed, using fallback: %v", lastErr)
	}

	return fallbackVerdict(req.Arguments), models.ScoreSourceFallback
}

// fallbackVerdict 用雙方發言的平均分決定勝負：
// 尚未評分的發言以後備分數計，超時發言固定 0 分，
// 平均分較高者獲勝，完全相同判和局。
func fallbackVerdict(arguments []models.Argument) *DebateVerdict {
	avgP := slotAverage(arguments, models.SlotProponent)
	avgO := slotAverage(arguments, models.SlotOpponent)

	winner := models.WinnerTie
	switch {
	case avgP > avgO:
		winner = models.WinnerProponent
	case avgO > avgP:
		winner = models.WinnerOpponent
	}

	return &DebateVerdict{
		Winner:         winner,
		ProponentScore: avgP,
		OpponentScore:  avgO,
		Summary:        "評審服務無法使用，勝負依雙方發言平均分判定",
	}
}

func slotAverage(arguments []models.Argument, slot models.Slot) float64 {
	var sum float64
	var count int
	for _, arg := range arguments {
		if arg.Slot != slot {
			continue
		}
		sum += effectiveScore(arg)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// effectiveScore 回傳發言的有效分數：超時發言固定 0，
// 尚未評分的發言視同後備分數，不會被悄悄當成 0。
func effectiveScore(arg models.Argument) float64 {
	if arg.Skipped {
		return 0
	}
	if arg.Score == nil {
		return FallbackScore
	}
	return *arg.Score
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func validWinner(winner string) bool {
	switch winner {
	case models.WinnerProponent, models.WinnerOpponent, models.WinnerTie:
		return true
	}
	return false
}

func marshalFeedback(score *ArgumentScore) string {
	data, err := json.Marshal(score)
	if err != nil {
		return ""
	}
	return string(data)
}
