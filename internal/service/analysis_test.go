package service

import (
	"errors"
	"testing"
	"time"

	"debate_arena/internal/models"
)

// finishDebate 快速打完一場一回合的辯論
func finishDebate(t *testing.T, svc *DebateService) *models.Debate {
	t.Helper()

	debate := setupReadyDebate(t, svc, 1, 60)
	if err := svc.Start(debate.ID, creatorID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.SubmitArgument(debate.ID, creatorID, "正方論點"); err != nil {
		t.Fatalf("submit proponent: %v", err)
	}
	if _, err := svc.SubmitArgument(debate.ID, opponentID, "反方論點"); err != nil {
		t.Fatalf("submit opponent: %v", err)
	}

	finished, _ := svc.GetDebate(debate.ID)
	if finished.Status != models.DebateStatusFinished {
		t.Fatalf("status = %s, want finished", finished.Status)
	}
	return finished
}

func TestAnalysisWrittenExactlyOnce(t *testing.T) {
	store := newMemoryStore()
	judge := newScriptedJudge()
	svc := newTestService(store, judge, newFakeClock())

	debate := finishDebate(t, svc)

	first, err := svc.GetAnalysis(debate.ID)
	if err != nil {
		t.Fatalf("analysis missing after completion: %v", err)
	}
	calls := judge.verdictCalls

	// 重複觸發回傳同一筆，不再呼叫評審、不產生第二次寫入
	second, err := svc.AnalyzeDebate(debate.ID)
	if err != nil {
		t.Fatalf("re-trigger: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second analysis ID = %d, want %d", second.ID, first.ID)
	}
	if judge.verdictCalls != calls {
		t.Fatalf("judge called again on re-trigger")
	}
	if len(store.analyses) != 1 {
		t.Fatalf("analysis rows = %d, want 1", len(store.analyses))
	}
}

func TestAnalysisRequiresFinishedDebate(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate := setupReadyDebate(t, svc, 1, 60)
	if _, err := svc.AnalyzeDebate(debate.ID); !errors.Is(err, ErrDebateNotFinished) {
		t.Fatalf("analyze unfinished: %v, want ErrDebateNotFinished", err)
	}
}

func TestAnalysisFallbackUsesAverages(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	judge := newScriptedJudge()
	judge.verdictErr = errors.New("judge down")
	judge.score = 8
	svc := newTestService(store, judge, clock)

	debate := setupReadyDebate(t, svc, 1, 60)
	if err := svc.Start(debate.ID, creatorID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 正方得 8 分，反方超時吃 0 分
	if _, err := svc.SubmitArgument(debate.ID, creatorID, "正方論點"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(61 * time.Second)
	if err := svc.TimeoutTurn(debate.ID); err != nil {
		t.Fatalf("TimeoutTurn: %v", err)
	}

	analysis, err := svc.GetAnalysis(debate.ID)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if analysis.Source != models.ScoreSourceFallback {
		t.Fatalf("source = %s, want fallback", analysis.Source)
	}
	if analysis.Winner != models.WinnerProponent {
		t.Fatalf("winner = %s, want proponent", analysis.Winner)
	}
	if analysis.ProponentScore != 8 || analysis.OpponentScore != 0 {
		t.Fatalf("averages = %v / %v, want 8 / 0", analysis.ProponentScore, analysis.OpponentScore)
	}
}

func TestAnalysisFallbackTie(t *testing.T) {
	judge := newScriptedJudge()
	judge.verdictErr = errors.New("judge down")
	store := newMemoryStore()
	svc := newTestService(store, judge, newFakeClock())

	debate := finishDebate(t, svc)

	analysis, err := svc.GetAnalysis(debate.ID)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	// 雙方各一條發言、同分，平手
	if analysis.Winner != models.WinnerTie || analysis.Source != models.ScoreSourceFallback {
		t.Fatalf("analysis = %+v, want fallback tie", analysis)
	}
}

func TestAnalysisInvalidJudgeWinnerFallsBack(t *testing.T) {
	judge := newScriptedJudge()
	judge.verdict = &DebateVerdict{Winner: "both", Summary: "nonsense"}
	store := newMemoryStore()
	svc := newTestService(store, judge, newFakeClock())

	debate := finishDebate(t, svc)

	analysis, err := svc.GetAnalysis(debate.ID)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if analysis.Source != models.ScoreSourceFallback {
		t.Fatalf("invalid winner should trigger fallback, got %+v", analysis)
	}
}
