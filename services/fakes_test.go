package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/payments"
	"github.com/bolekz/riffa-games/repositories"
	"github.com/google/uuid"
)

// Фейковые репозитории в памяти. Транзакционность эмулируется тривиально:
// fakeTxRunner исполняет функцию напрямую, атомарность в тестах не проверяется
// на уровне БД, только порядок проверок и итоговое состояние.

type fakeTxRunner struct {
	calls int
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.calls++
	return fn(nil)
}

type recordedEvent struct {
	UserID    string
	EventType models.UserEventType
}

type fakeEventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEventRecorder) Record(userID string, eventType models.UserEventType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{UserID: userID, EventType: eventType})
}

func (f *fakeEventRecorder) Close() {}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeBroadcaster) BroadcastTournamentUpdate(tournamentID string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, tournamentID)
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) addUser(nickname string, balance int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{
		ID:                  uuid.NewString(),
		Nickname:            nickname,
		Email:               nickname + "@example.com",
		Role:                models.RoleUser,
		RiffaCoinsAvailable: balance,
		CreatedAt:           time.Now(),
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Nickname == u.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) AdjustBalance(ctx context.Context, exec repositories.SQLExecutor, userID string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if u.RiffaCoinsAvailable+delta < 0 {
		return repositories.ErrInsufficientBalance
	}
	u.RiffaCoinsAvailable += delta
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) balance(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].RiffaCoinsAvailable
}

// --- games ---

type fakeGameRepo struct {
	games     map[string]*models.Game
	miniGames map[string]*models.MiniGame
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: map[string]*models.Game{}, miniGames: map[string]*models.MiniGame{}}
}

func (f *fakeGameRepo) addMiniGame(order models.ScoreOrder, minScore, maxScore *int) (*models.Game, *models.MiniGame) {
	g := &models.Game{ID: uuid.NewString(), Name: "Game " + uuid.NewString()[:8]}
	mg := &models.MiniGame{
		ID:         uuid.NewString(),
		GameID:     g.ID,
		Name:       "MiniGame",
		MinScore:   minScore,
		MaxScore:   maxScore,
		ScoreOrder: order,
	}
	f.games[g.ID] = g
	f.miniGames[mg.ID] = mg
	return g, mg
}

func (f *fakeGameRepo) GetByID(ctx context.Context, id string) (*models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	clone := *g
	return &clone, nil
}

func (f *fakeGameRepo) GetMiniGameByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.MiniGame, error) {
	mg, ok := f.miniGames[id]
	if !ok {
		return nil, repositories.ErrMiniGameNotFound
	}
	clone := *mg
	return &clone, nil
}

func (f *fakeGameRepo) UpdateLogoKey(ctx context.Context, gameID string, logoKey *string) error {
	g, ok := f.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	g.LogoKey = logoKey
	return nil
}

// --- tournaments ---

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: map[string]*models.Tournament{}}
}

func (f *fakeTournamentRepo) add(t *models.Tournament) *models.Tournament {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.StatusSelling
	}
	f.tournaments[t.ID] = t
	return t
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	clone := *t
	f.tournaments[t.ID] = &clone
	return nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	return f.GetByID(ctx, exec, id)
}

func (f *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Tournament{}
	for _, t := range f.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (f *fakeTournamentRepo) IncrementTicketsSold(ctx context.Context, exec repositories.SQLExecutor, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return 0, repositories.ErrTournamentNotFound
	}
	if t.Status != models.StatusSelling || t.TicketsSold >= t.TicketTarget {
		return 0, repositories.ErrTournamentTargetExceeded
	}
	t.TicketsSold++
	return t.TicketsSold, nil
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTournamentRepo) SetCompleted(ctx context.Context, exec repositories.SQLExecutor, id string, winnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusCompleted
	t.WinnerID = &winnerID
	return nil
}

func (f *fakeTournamentRepo) ListDueForFinalization(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Tournament{}
	for _, t := range f.tournaments {
		if t.Status == models.StatusSelling && !t.CompetitionEndsAt.After(now) {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (f *fakeTournamentRepo) NullifyUserRefs(ctx context.Context, exec repositories.SQLExecutor, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tournaments {
		if t.OwnerID != nil && *t.OwnerID == userID {
			t.OwnerID = nil
		}
		if t.WinnerID != nil && *t.WinnerID == userID {
			t.WinnerID = nil
		}
	}
	return nil
}

func (f *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, tournamentID string, bannerKey *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

// --- attempts ---

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.TournamentAttempt
	seq      int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{}
}

func (f *fakeAttemptRepo) Create(ctx context.Context, exec repositories.SQLExecutor, a *models.TournamentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.seq++
	// Монотонный created_at: порядок покупки однозначен.
	a.CreatedAt = time.Unix(int64(f.seq), 0)
	clone := *a
	f.attempts = append(f.attempts, &clone)
	return nil
}

func (f *fakeAttemptRepo) CountByCompetitor(ctx context.Context, exec repositories.SQLExecutor, tournamentID, competitorID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.attempts {
		if a.TournamentID == tournamentID && a.CompetitorID == competitorID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) FindOldestUnscored(ctx context.Context, exec repositories.SQLExecutor, tournamentID, competitorID string) (*models.TournamentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *models.TournamentAttempt
	for _, a := range f.attempts {
		if a.TournamentID != tournamentID || a.CompetitorID != competitorID || a.Score != nil {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(oldest.CreatedAt) {
			oldest = a
		}
	}
	if oldest == nil {
		return nil, repositories.ErrAttemptNotFound
	}
	clone := *oldest
	return &clone, nil
}

func (f *fakeAttemptRepo) SetScore(ctx context.Context, exec repositories.SQLExecutor, attemptID string, score int) (*models.TournamentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ID == attemptID {
			if a.Score != nil {
				return nil, repositories.ErrAttemptAlreadyScored
			}
			s := score
			a.Score = &s
			clone := *a
			return &clone, nil
		}
	}
	return nil, repositories.ErrAttemptNotFound
}

func (f *fakeAttemptRepo) ListScored(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.TournamentAttempt{}
	for _, a := range f.attempts {
		if a.TournamentID == tournamentID && a.Score != nil {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (f *fakeAttemptRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.TournamentAttempt{}
	for _, a := range f.attempts {
		if a.TournamentID == tournamentID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (f *fakeAttemptRepo) DeleteByCompetitor(ctx context.Context, exec repositories.SQLExecutor, competitorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.CompetitorID != competitorID {
			kept = append(kept, a)
		}
	}
	f.attempts = kept
	return nil
}

// --- prizes ---

type fakePrizeRepo struct {
	prizes map[string]*models.TournamentPrize
}

func newFakePrizeRepo() *fakePrizeRepo {
	return &fakePrizeRepo{prizes: map[string]*models.TournamentPrize{}}
}

func (f *fakePrizeRepo) addPrize(tournamentID string, rank int, rcAmount *int64, itemID *string) *models.TournamentPrize {
	p := &models.TournamentPrize{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		Rank:         rank,
		RCAmount:     rcAmount,
		ItemID:       itemID,
	}
	f.prizes[p.ID] = p
	return p
}

func (f *fakePrizeRepo) Create(ctx context.Context, p *models.TournamentPrize) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	clone := *p
	f.prizes[p.ID] = &clone
	return nil
}

func (f *fakePrizeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.TournamentPrize, error) {
	p, ok := f.prizes[id]
	if !ok {
		return nil, repositories.ErrPrizeNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakePrizeRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]models.TournamentPrize, error) {
	result := []models.TournamentPrize{}
	for _, p := range f.prizes {
		if p.TournamentID == tournamentID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Rank < result[j].Rank })
	return result, nil
}

// --- claims ---

type fakeClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*models.PrizeClaim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: map[string]*models.PrizeClaim{}}
}

func (f *fakeClaimRepo) Create(ctx context.Context, exec repositories.SQLExecutor, c *models.PrizeClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.ClaimPending
	}
	c.CreatedAt = time.Now()
	clone := *c
	f.claims[c.ID] = &clone
	return nil
}

func (f *fakeClaimRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.PrizeClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return nil, repositories.ErrClaimNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeClaimRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, status models.PrizeClaimStatus, claimedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return repositories.ErrClaimNotFound
	}
	c.Status = status
	c.ClaimedAt = &claimedAt
	return nil
}

func (f *fakeClaimRepo) ListByUser(ctx context.Context, userID string) ([]models.PrizeClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.PrizeClaim{}
	for _, c := range f.claims {
		if c.UserID == userID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (f *fakeClaimRepo) DeleteByUser(ctx context.Context, exec repositories.SQLExecutor, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.claims {
		if c.UserID == userID {
			delete(f.claims, id)
		}
	}
	return nil
}

func (f *fakeClaimRepo) claimsForTournamentPrize(prizeID string) []*models.PrizeClaim {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []*models.PrizeClaim{}
	for _, c := range f.claims {
		if c.TournamentPrizeID == prizeID {
			result = append(result, c)
		}
	}
	return result
}

// --- transactions ---

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: map[string]*models.Transaction{}}
}

func (f *fakeTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	clone := *t
	f.transactions[t.ID] = &clone
	return nil
}

func (f *fakeTransactionRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTransactionRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Transaction, error) {
	return f.GetByID(ctx, exec, id)
}

func (f *fakeTransactionRepo) SetGatewayID(ctx context.Context, exec repositories.SQLExecutor, id string, gatewayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	t.GatewayTransactionID = &gatewayID
	return nil
}

func (f *fakeTransactionRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, status models.TransactionStatus, details models.TransactionDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	t.Status = status
	t.Details = details
	return nil
}

func (f *fakeTransactionRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Transaction{}
	for _, t := range f.transactions {
		if t.UserID == userID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (f *fakeTransactionRepo) DeleteByUser(ctx context.Context, exec repositories.SQLExecutor, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.transactions {
		if t.UserID == userID {
			delete(f.transactions, id)
		}
	}
	return nil
}

func (f *fakeTransactionRepo) get(id string) *models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.transactions[id]
	clone := *t
	return &clone
}

// --- payment gateway ---

type fakeGateway struct {
	mu          sync.Mutex
	preferences []payments.PreferenceRequest
	payments    map[string]*payments.PaymentInfo
	failCreate  bool
	getCalls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*payments.PaymentInfo{}}
}

func (f *fakeGateway) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (*payments.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, fmt.Errorf("gateway unavailable")
	}
	f.preferences = append(f.preferences, req)
	return &payments.Preference{ID: "pref-" + req.ExternalReference, InitPoint: "https://gateway.test/checkout"}, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*payments.PaymentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	clone := *p
	return &clone, nil
}
