package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/notification"
)

// memState is the data held by memStore. Transactions work on a clone and swap it in on commit.
type memState struct {
	users   map[int64]models.User
	bills   map[int64]models.Bill
	rewards map[int64]models.Reward
	claims  []models.RewardClaim
	nextID  int64
}

func (s *memState) clone() *memState {
	c := &memState{
		users:   make(map[int64]models.User, len(s.users)),
		bills:   make(map[int64]models.Bill, len(s.bills)),
		rewards: make(map[int64]models.Reward, len(s.rewards)),
		claims:  append([]models.RewardClaim(nil), s.claims...),
		nextID:  s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.bills {
		c.bills[k] = v
	}
	for k, v := range s.rewards {
		c.rewards[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore is an in-memory Store with serialized, all-or-nothing transactions
type memStore struct {
	mu        sync.Mutex
	state     *memState
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		users:   map[int64]models.User{},
		bills:   map[int64]models.Bill{},
		rewards: map[int64]models.Reward{},
	}}
}

func (m *memStore) view() *memView { return &memView{store: m} }

func (m *memStore) Users() UserRepository         { return m.view() }
func (m *memStore) Bills() BillRepository         { return memBills{m.view()} }
func (m *memStore) Rewards() RewardRepository     { return memRewards{m.view()} }
func (m *memStore) Claims() RewardClaimRepository { return memClaims{m.view()} }

func (m *memStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.state.clone()
	if err := fn(&memView{store: m, tx: working}); err != nil {
		return err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	m.state = working
	return nil
}

// seedUser and friends write directly, outside any transaction
func (m *memStore) seedUser(email string, points int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: m.state.id(), Email: email, Username: email, IsActive: true, RewardPoints: points}
	m.state.users[u.ID] = u
	return u
}

func (m *memStore) seedReward(name string, cost int64, active bool) models.Reward {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := models.Reward{ID: m.state.id(), Name: name, PointsRequired: cost, IsActive: active}
	m.state.rewards[r.ID] = r
	return r
}

func (m *memStore) seedBill(ownerID int64, name string, due time.Time, paid bool) models.Bill {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := models.Bill{ID: m.state.id(), OwnerID: ownerID, BillerName: name, Category: "Utility", Amount: decimal.NewFromInt(20), DueDate: due, IsPaid: paid}
	if paid {
		at := due
		b.PaidAt = &at
	}
	m.state.bills[b.ID] = b
	return b
}

func (m *memStore) seedClaim(userID, rewardID, points int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.claims = append(m.state.claims, models.RewardClaim{ID: m.state.id(), UserID: userID, RewardID: rewardID, PointsUsed: points})
}

func (m *memStore) user(id int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[id]
}

func (m *memStore) bill(id int64) models.Bill {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.bills[id]
}

func (m *memStore) setRewardCost(id, cost int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.state.rewards[id]
	r.PointsRequired = cost
	m.state.rewards[id] = r
}

func (m *memStore) claimCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.claims)
}

// memView implements every repository. Inside a transaction it works on tx without locking.
type memView struct {
	store *memStore
	tx    *memState
}

func (v *memView) do(fn func(st *memState)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	fn(v.store.state)
}

func (v *memView) Users() UserRepository         { return v }
func (v *memView) Bills() BillRepository         { return memBills{v} }
func (v *memView) Rewards() RewardRepository     { return memRewards{v} }
func (v *memView) Claims() RewardClaimRepository { return memClaims{v} }

func (v *memView) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if v.tx != nil {
		return fn(v)
	}
	return v.store.WithTx(ctx, fn)
}

func (v *memView) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var out *models.User
	v.do(func(st *memState) {
		if u, ok := st.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (v *memView) Create(ctx context.Context, user *models.User) error {
	var err error
	v.do(func(st *memState) {
		for _, existing := range st.users {
			if existing.Email == user.Email || existing.Username == user.Username {
				err = fmt.Errorf("%w: email or username already registered", ErrConflict)
				return
			}
		}
		user.ID = st.id()
		st.users[user.ID] = *user
	})
	return err
}

func (v *memView) SetActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	var out *models.User
	v.do(func(st *memState) {
		u, ok := st.users[id]
		if !ok {
			return
		}
		u.IsActive = active
		st.users[id] = u
		out = &u
	})
	return out, nil
}

func (v *memView) Totals(ctx context.Context) (models.UserTotals, error) {
	var totals models.UserTotals
	v.do(func(st *memState) {
		for _, u := range st.users {
			totals.Total++
			if u.IsActive {
				totals.Active++
			}
			totals.TotalPoints += u.RewardPoints
		}
	})
	return totals, nil
}

func (v *memView) AddPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	var out *models.User
	v.do(func(st *memState) {
		u, ok := st.users[id]
		if !ok {
			return
		}
		u.RewardPoints += amount
		st.users[id] = u
		out = &u
	})
	return out, nil
}

func (v *memView) DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	var out *models.User
	v.do(func(st *memState) {
		u, ok := st.users[id]
		if !ok || u.RewardPoints < amount {
			return
		}
		u.RewardPoints -= amount
		st.users[id] = u
		out = &u
	})
	return out, nil
}

// bill repository

type memBills struct{ *memView }

func (b memBills) Create(ctx context.Context, bill *models.Bill) error {
	b.do(func(st *memState) {
		bill.ID = st.id()
		bill.CreatedAt = time.Now()
		st.bills[bill.ID] = *bill
	})
	return nil
}

func (b memBills) GetByOwner(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	var out *models.Bill
	b.do(func(st *memState) {
		if bill, ok := st.bills[id]; ok && bill.OwnerID == ownerID {
			out = &bill
		}
	})
	return out, nil
}

func (b memBills) GetByOwnerForUpdate(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	return b.GetByOwner(ctx, id, ownerID)
}

func (b memBills) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Bill, error) {
	out := make([]*models.Bill, 0)
	b.do(func(st *memState) {
		for _, bill := range st.bills {
			if bill.OwnerID == ownerID {
				bill := bill
				out = append(out, &bill)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return billLess(*out[i], *out[j]) })
	return out, nil
}

func (b memBills) Update(ctx context.Context, bill *models.Bill) (bool, error) {
	var ok bool
	b.do(func(st *memState) {
		existing, found := st.bills[bill.ID]
		if !found || existing.OwnerID != bill.OwnerID || existing.IsPaid {
			return
		}
		bill.CreatedAt = existing.CreatedAt
		st.bills[bill.ID] = *bill
		ok = true
	})
	return ok, nil
}

func (b memBills) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	var ok bool
	b.do(func(st *memState) {
		bill, found := st.bills[id]
		if !found || bill.IsPaid {
			return
		}
		bill.IsPaid = true
		bill.PaidAt = &paidAt
		st.bills[id] = bill
		ok = true
	})
	return ok, nil
}

func (b memBills) ListDue(ctx context.Context, dueBy time.Time, after *models.DueBillCursor, limit int) ([]models.DueBill, error) {
	var candidates []models.Bill
	owners := map[int64]models.User{}
	b.do(func(st *memState) {
		for _, bill := range st.bills {
			if bill.IsPaid || bill.DueDate.After(dueBy) {
				continue
			}
			if after != nil && !billLess(models.Bill{ID: after.ID, DueDate: after.DueDate}, bill) {
				continue
			}
			candidates = append(candidates, bill)
			owners[bill.OwnerID] = st.users[bill.OwnerID]
		}
	})
	sort.Slice(candidates, func(i, j int) bool { return billLess(candidates[i], candidates[j]) })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]models.DueBill, 0, len(candidates))
	for _, bill := range candidates {
		bill := bill
		owner := owners[bill.OwnerID]
		out = append(out, models.DueBill{Bill: &bill, Owner: &owner})
	}
	return out, nil
}

func (b memBills) CountByOwner(ctx context.Context, ownerID int64) (total, paid int, err error) {
	b.do(func(st *memState) {
		for _, bill := range st.bills {
			if bill.OwnerID != ownerID {
				continue
			}
			total++
			if bill.IsPaid {
				paid++
			}
		}
	})
	return total, paid, nil
}

func (b memBills) Totals(ctx context.Context, dueBy time.Time) (models.BillTotals, error) {
	totals := models.BillTotals{DueAmount: decimal.Zero}
	b.do(func(st *memState) {
		for _, bill := range st.bills {
			totals.Total++
			if bill.IsPaid {
				totals.Paid++
				continue
			}
			if !bill.DueDate.After(dueBy) {
				totals.Due++
				totals.DueAmount = totals.DueAmount.Add(bill.Amount)
			}
		}
	})
	return totals, nil
}

func billLess(a, b models.Bill) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	return a.ID < b.ID
}

// reward repositories

type memRewards struct{ *memView }

func (r memRewards) GetByID(ctx context.Context, id int64) (*models.Reward, error) {
	var out *models.Reward
	r.do(func(st *memState) {
		if reward, ok := st.rewards[id]; ok {
			out = &reward
		}
	})
	return out, nil
}

func (r memRewards) ListActive(ctx context.Context) ([]*models.Reward, error) {
	out := make([]*models.Reward, 0)
	r.do(func(st *memState) {
		for _, reward := range st.rewards {
			if reward.IsActive {
				reward := reward
				out = append(out, &reward)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PointsRequired < out[j].PointsRequired })
	return out, nil
}

func (r memRewards) Create(ctx context.Context, reward *models.Reward) error {
	r.do(func(st *memState) {
		reward.ID = st.id()
		st.rewards[reward.ID] = *reward
	})
	return nil
}

func (r memRewards) SetActive(ctx context.Context, id int64, active bool) (*models.Reward, error) {
	var out *models.Reward
	r.do(func(st *memState) {
		reward, ok := st.rewards[id]
		if !ok {
			return
		}
		reward.IsActive = active
		st.rewards[id] = reward
		out = &reward
	})
	return out, nil
}

type memClaims struct{ *memView }

func (c memClaims) Create(ctx context.Context, claim *models.RewardClaim) error {
	c.do(func(st *memState) {
		claim.ID = st.id()
		claim.ClaimedAt = time.Now()
		st.claims = append(st.claims, *claim)
	})
	return nil
}

func (c memClaims) ListByUser(ctx context.Context, userID int64) ([]*models.RewardClaim, error) {
	out := make([]*models.RewardClaim, 0)
	c.do(func(st *memState) {
		for i := len(st.claims) - 1; i >= 0; i-- {
			if st.claims[i].UserID == userID {
				claim := st.claims[i]
				out = append(out, &claim)
			}
		}
	})
	return out, nil
}

func (c memClaims) CountByUser(ctx context.Context, userID int64) (int, error) {
	n := 0
	c.do(func(st *memState) {
		for _, claim := range st.claims {
			if claim.UserID == userID {
				n++
			}
		}
	})
	return n, nil
}

func (c memClaims) Count(ctx context.Context) (int, error) {
	n := 0
	c.do(func(st *memState) { n = len(st.claims) })
	return n, nil
}

// fakePublisher records published intents
type fakePublisher struct {
	mu      sync.Mutex
	intents []notification.Intent
	err     error
}

func (p *fakePublisher) Publish(intent notification.Intent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.intents = append(p.intents, intent)
	return nil
}

func (p *fakePublisher) templates() []notification.Template {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notification.Template, 0, len(p.intents))
	for _, intent := range p.intents {
		out = append(out, intent.Template)
	}
	return out
}
