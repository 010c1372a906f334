package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"debate_arena/internal/models"
	"debate_arena/internal/repository"
)

// fakeClock 讓測試完全控制時間
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore 保存測試資料並模擬樂觀鎖與唯一索引的語義，
// 各 repository 介面由下面的薄包裝實作。
type memoryStore struct {
	mu       sync.Mutex
	debates  map[uint]models.Debate
	args     []models.Argument
	requests map[uint]map[uint]models.JoinRequest // debateID -> userID
	analyses map[uint]models.DebateAnalysis
	nextID   uint

	// beforeCAS 在下一次條件更新前被呼叫一次，測試用它注入併發干擾
	beforeCAS func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		debates:  make(map[uint]models.Debate),
		requests: make(map[uint]map[uint]models.JoinRequest),
		analyses: make(map[uint]models.DebateAnalysis),
	}
}

func (s *memoryStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Debate:      &fakeDebateRepo{s},
		Argument:    &fakeArgumentRepo{s},
		JoinRequest: &fakeJoinRequestRepo{s},
		Analysis:    &fakeAnalysisRepo{s},
	}
}

func (s *memoryStore) allocID() uint {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) casLocked(debate *models.Debate) error {
	if s.beforeCAS != nil {
		hook := s.beforeCAS
		s.beforeCAS = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}

	current, ok := s.debates[debate.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Version != debate.Version {
		return repository.ErrVersionConflict
	}
	debate.Version++
	s.debates[debate.ID] = *debate
	return nil
}

// insertArgument 直接塞入一條發言，模擬另一個客戶端搶先提交
func (s *memoryStore) insertArgument(arg models.Argument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	arg.ID = s.allocID()
	s.args = append(s.args, arg)
}

func (s *memoryStore) argumentsFor(debateID uint) []models.Argument {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Argument
	for _, arg := range s.args {
		if arg.DebateID == debateID {
			out = append(out, arg)
		}
	}
	return out
}

func (s *memoryStore) debate(id uint) models.Debate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debates[id]
}

type fakeDebateRepo struct{ s *memoryStore }

func (r *fakeDebateRepo) Create(debate *models.Debate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	debate.ID = r.s.allocID()
	r.s.debates[debate.ID] = *debate
	return nil
}

func (r *fakeDebateRepo) FindByID(id uint) (*models.Debate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	debate, ok := r.s.debates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := debate
	return &copied, nil
}

func (r *fakeDebateRepo) FindAll() ([]models.Debate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var debates []models.Debate
	for _, debate := range r.s.debates {
		debates = append(debates, debate)
	}
	return debates, nil
}

func (r *fakeDebateRepo) UpdateCAS(debate *models.Debate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.casLocked(debate)
}

func (r *fakeDebateRepo) CommitTurn(debate *models.Debate, argument *models.Argument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.args {
		if existing.DebateID == argument.DebateID &&
			existing.Round == argument.Round &&
			existing.Slot == argument.Slot {
			return gorm.ErrDuplicatedKey
		}
	}
	if err := r.s.casLocked(debate); err != nil {
		return err
	}

	argument.ID = r.s.allocID()
	argument.CreatedAt = time.Now()
	r.s.args = append(r.s.args, *argument)
	return nil
}

type fakeArgumentRepo struct{ s *memoryStore }

func (r *fakeArgumentRepo) FindByDebateID(debateID uint) ([]models.Argument, error) {
	return r.s.argumentsFor(debateID), nil
}

func (r *fakeArgumentRepo) AttachScore(argumentID uint, score float64, source string, feedback string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.args {
		if r.s.args[i].ID == argumentID && r.s.args[i].ScoreSource == "" {
			r.s.args[i].Score = &score
			r.s.args[i].ScoreSource = source
			r.s.args[i].Feedback = feedback
		}
	}
	return nil
}

type fakeJoinRequestRepo struct{ s *memoryStore }

func (r *fakeJoinRequestRepo) Create(request *models.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[request.DebateID][request.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if r.s.requests[request.DebateID] == nil {
		r.s.requests[request.DebateID] = make(map[uint]models.JoinRequest)
	}
	request.ID = r.s.allocID()
	r.s.requests[request.DebateID][request.UserID] = *request
	return nil
}

func (r *fakeJoinRequestRepo) FindByDebateAndUser(debateID, userID uint) (*models.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.requests[debateID][userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := request
	return &copied, nil
}

func (r *fakeJoinRequestRepo) FindPendingByDebate(debateID uint) ([]models.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.JoinRequest
	for _, request := range r.s.requests[debateID] {
		if request.Status == models.JoinRequestPending {
			out = append(out, request)
		}
	}
	return out, nil
}

func (r *fakeJoinRequestRepo) Update(request *models.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[request.DebateID][request.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.s.requests[request.DebateID][request.UserID] = *request
	return nil
}

func (r *fakeJoinRequestRepo) Delete(debateID, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.requests[debateID], userID)
	return nil
}

type fakeAnalysisRepo struct{ s *memoryStore }

func (r *fakeAnalysisRepo) Create(analysis *models.DebateAnalysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.analyses[analysis.DebateID]; ok {
		return gorm.ErrDuplicatedKey
	}
	analysis.ID = r.s.allocID()
	r.s.analyses[analysis.DebateID] = *analysis
	return nil
}

func (r *fakeAnalysisRepo) FindByDebateID(debateID uint) (*models.DebateAnalysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	analysis, ok := r.s.analyses[debateID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := analysis
	return &copied, nil
}

// scriptedJudge 是可編排的評審替身
type scriptedJudge struct {
	mu           sync.Mutex
	score        float64
	scoreErrs    []error // 依呼叫順序回傳的錯誤，用完後一律成功
	verdict      *DebateVerdict
	verdictErr   error
	scoreCalls   int
	verdictCalls int
}

func newScriptedJudge() *scriptedJudge {
	return &scriptedJudge{score: 7}
}

func (j *scriptedJudge) ScoreArgument(ctx context.Context, req ScoreRequest) (*ArgumentScore, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.scoreCalls++
	if len(j.scoreErrs) > 0 {
		err := j.scoreErrs[0]
		j.scoreErrs = j.scoreErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ArgumentScore{Score: j.score, Reasoning: "scripted"}, nil
}

func (j *scriptedJudge) AnalyzeDebate(ctx context.Context, req VerdictRequest) (*DebateVerdict, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.verdictCalls++
	if j.verdictErr != nil {
		return nil, j.verdictErr
	}
	if j.verdict != nil {
		copied := *j.verdict
		return &copied, nil
	}
	return &DebateVerdict{
		Winner:         models.WinnerProponent,
		ProponentScore: 8,
		OpponentScore:  6,
		Summary:        "scripted verdict",
	}, nil
}

// newTestService 組裝一個評分同步執行的狀態機，方便測試直接斷言
func newTestService(store *memoryStore, judge Judge, clock Clock) *DebateService {
	scorer := NewScorerAdapter(judge, time.Second)
	svc := NewDebateService(store.repos(), scorer, NewWebSocketManager(), clock, 2000)
	svc.dispatch = func(fn func()) { fn() }
	return svc
}
