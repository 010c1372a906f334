package service

import (
	"errors"
	"testing"

	"debate_arena/internal/models"
)

func TestJoinRequestApprovalFlow(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, err := svc.CreateDebate(creatorID, "topic", 2, 60)
	if err != nil {
		t.Fatalf("CreateDebate: %v", err)
	}
	if err := svc.Join(debate.ID, creatorID, "小明", "S-A"); err != nil {
		t.Fatalf("creator join: %v", err)
	}

	// 非參與者先提出請求
	request, err := svc.RequestJoin(debate.ID, opponentID, "小華")
	if err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if request.Status != models.JoinRequestPending {
		t.Fatalf("request status = %s, want pending", request.Status)
	}

	// 批准前不能入座
	if err := svc.Join(debate.ID, opponentID, "小華", "S-B"); !errors.Is(err, ErrJoinNotApproved) {
		t.Fatalf("join while pending: %v, want ErrJoinNotApproved", err)
	}

	// 創建者批准後入座成功
	if err := svc.ResolveJoinRequest(debate.ID, creatorID, opponentID, true); err != nil {
		t.Fatalf("ResolveJoinRequest: %v", err)
	}
	if err := svc.Join(debate.ID, opponentID, "小華", "S-B"); err != nil {
		t.Fatalf("join after approval: %v", err)
	}

	updated, _ := svc.GetDebate(debate.ID)
	if updated.OpponentID != opponentID {
		t.Fatalf("opponent slot = %d, want %d", updated.OpponentID, opponentID)
	}
	if updated.Status != models.DebateStatusReady {
		t.Fatalf("status = %s, want ready", updated.Status)
	}

	// 入座後請求記錄從待審清單移除
	if _, err := store.repos().JoinRequest.FindByDebateAndUser(debate.ID, opponentID); err == nil {
		t.Fatal("join request should be removed after seating")
	}
}

func TestJoinWithoutRequestRejected(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, _ := svc.CreateDebate(creatorID, "topic", 2, 60)
	if err := svc.Join(debate.ID, opponentID, "小華", "S-B"); !errors.Is(err, ErrJoinRequestRequired) {
		t.Fatalf("join without request: %v, want ErrJoinRequestRequired", err)
	}
}

func TestDeniedRequesterCannotSeat(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, _ := svc.CreateDebate(creatorID, "topic", 2, 60)
	if _, err := svc.RequestJoin(debate.ID, opponentID, "小華"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if err := svc.ResolveJoinRequest(debate.ID, creatorID, opponentID, false); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if err := svc.Join(debate.ID, opponentID, "小華", "S-B"); !errors.Is(err, ErrJoinDenied) {
		t.Fatalf("join after denial: %v, want ErrJoinDenied", err)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, _ := svc.CreateDebate(creatorID, "topic", 2, 60)
	if _, err := svc.RequestJoin(debate.ID, opponentID, "小華"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	if err := svc.ResolveJoinRequest(debate.ID, creatorID, opponentID, true); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	// 重複批准是無害的空操作
	if err := svc.ResolveJoinRequest(debate.ID, creatorID, opponentID, true); err != nil {
		t.Fatalf("second approve should be a no-op: %v", err)
	}
	// 已批准的請求不能改判為拒絕
	if err := svc.ResolveJoinRequest(debate.ID, creatorID, opponentID, false); !errors.Is(err, ErrRequestResolved) {
		t.Fatalf("flip approved to denied: %v, want ErrRequestResolved", err)
	}
}

func TestResolveRequiresCreator(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, _ := svc.CreateDebate(creatorID, "topic", 2, 60)
	if _, err := svc.RequestJoin(debate.ID, opponentID, "小華"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	if err := svc.ResolveJoinRequest(debate.ID, opponentID, opponentID, true); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("resolve by non-creator: %v, want ErrNotCreator", err)
	}
	if _, err := svc.ListJoinRequests(debate.ID, opponentID); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("list by non-creator: %v, want ErrNotCreator", err)
	}

	requests, err := svc.ListJoinRequests(debate.ID, creatorID)
	if err != nil {
		t.Fatalf("ListJoinRequests: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("pending request count = %d, want 1", len(requests))
	}
}

func TestRequestJoinGuards(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate, _ := svc.CreateDebate(creatorID, "topic", 2, 60)

	// 創建者無需提交請求
	if _, err := svc.RequestJoin(debate.ID, creatorID, "小明"); !errors.Is(err, ErrCreatorNeedsNoAsk) {
		t.Fatalf("creator request: %v, want ErrCreatorNeedsNoAsk", err)
	}

	// 重複請求被拒
	if _, err := svc.RequestJoin(debate.ID, opponentID, "小華"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.RequestJoin(debate.ID, opponentID, "小華"); !errors.Is(err, ErrRequestExists) {
		t.Fatalf("duplicate request: %v, want ErrRequestExists", err)
	}

	// 已是參與者不能再請求
	if err := svc.Join(debate.ID, creatorID, "小明", "S-A"); err != nil {
		t.Fatalf("creator join: %v", err)
	}
	if _, err := svc.RequestJoin(debate.ID, creatorID, "小明"); !errors.Is(err, ErrAlreadyParticipant) {
		t.Fatalf("participant request: %v, want ErrAlreadyParticipant", err)
	}
}

func TestRequestJoinDeniedOnceFull(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate := setupReadyDebate(t, svc, 2, 60)

	// 兩個席位都已占用，新的請求直接拒絕受理
	if _, err := svc.RequestJoin(debate.ID, 303, "路人"); !errors.Is(err, ErrDebateFull) {
		t.Fatalf("request when full: %v, want ErrDebateFull", err)
	}
}

func TestSlotNeverReassigned(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, newScriptedJudge(), newFakeClock())

	debate := setupReadyDebate(t, svc, 2, 60)

	// 已入座者重複入座被拒，席位不變
	if err := svc.Join(debate.ID, creatorID, "別名2", "S-A2"); !errors.Is(err, ErrAlreadyParticipant) {
		t.Fatalf("re-join: %v, want ErrAlreadyParticipant", err)
	}

	updated, _ := svc.GetDebate(debate.ID)
	if updated.ProponentID != creatorID || updated.ProponentStance != "S-A" {
		t.Fatalf("proponent slot mutated: %+v", updated)
	}
}
