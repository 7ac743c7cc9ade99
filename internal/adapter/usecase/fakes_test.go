package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"flashbid/internal/core/domain"
	"flashbid/internal/core/port"
)

type bidKey struct {
	campaign uuid.UUID
	bidder   uuid.UUID
}

// fakeCampaignRepo keeps campaigns in a map and mimics the conditional
// status transitions of the postgres adapter.
type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*domain.Campaign
	claimFail bool // force ClaimClosing to lose the race
}

func newFakeCampaignRepo(cs ...*domain.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{campaigns: make(map[uuid.UUID]*domain.Campaign)}
	for _, c := range cs {
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *fakeCampaignRepo) Get(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, port.ErrCampaignNotFound
	}
	cp := *c
	p := *c.Product
	cp.Product = &p
	return &cp, nil
}

func (r *fakeCampaignRepo) List(_ context.Context, _, _ int) ([]domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCampaignRepo) ActivateDue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.campaigns {
		if c.Status == domain.StatusPending && !now.Before(c.StartTime) {
			c.Status = domain.StatusActive
			n++
		}
	}
	return n, nil
}

func (r *fakeCampaignRepo) DueForSettlement(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Campaign
	for _, c := range r.campaigns {
		if !now.Before(c.EndTime) && (c.Status == domain.StatusActive || c.Status == domain.StatusClosing) {
			cp := *c
			p := *c.Product
			cp.Product = &p
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) ClaimClosing(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimFail {
		return false, nil
	}
	c, ok := r.campaigns[id]
	if !ok || c.Status != domain.StatusActive {
		return false, nil
	}
	c.Status = domain.StatusClosing
	return true, nil
}

func (r *fakeCampaignRepo) MarkSettled(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok && c.Status == domain.StatusClosing {
		c.Status = domain.StatusSettled
	}
	return nil
}

func (r *fakeCampaignRepo) status(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

// fakeBidRepo reproduces the ledger's atomic insert-or-overwrite.
type fakeBidRepo struct {
	mu   sync.Mutex
	rows map[bidKey]*domain.Bid
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{rows: make(map[bidKey]*domain.Bid)}
}

func (r *fakeBidRepo) Upsert(_ context.Context, up port.BidUpsert) (*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := bidKey{up.CampaignID, up.BidderID}
	row, ok := r.rows[k]
	if !ok {
		row = &domain.Bid{
			ID:         uuid.New(),
			CampaignID: up.CampaignID,
			BidderID:   up.BidderID,
			ProductID:  up.ProductID,
			CreatedAt:  time.Now(),
		}
		r.rows[k] = row
	}
	row.Price = up.Price
	row.Score = up.Score
	row.ElapsedMs = up.ElapsedMs
	row.SubmissionCount++
	row.UpdatedAt = time.Now()
	cp := *row
	return &cp, nil
}

func (r *fakeBidRepo) Find(_ context.Context, campaignID, bidderID uuid.UUID) (*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[bidKey{campaignID, bidderID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeBidRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Bid
	for k, row := range r.rows {
		if k.campaign == campaignID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Score.Cmp(out[j].Score); c != 0 {
			return c > 0
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *fakeBidRepo) CountByCampaign(_ context.Context, campaignID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.rows {
		if k.campaign == campaignID {
			n++
		}
	}
	return n, nil
}

// fakeAwardRepo mimics the idempotent (campaign, bidder) insert.
type fakeAwardRepo struct {
	mu      sync.Mutex
	awards  map[bidKey]domain.Award
	failErr error // next Create fails with this error
}

func newFakeAwardRepo() *fakeAwardRepo {
	return &fakeAwardRepo{awards: make(map[bidKey]domain.Award)}
}

func (r *fakeAwardRepo) Create(_ context.Context, a *domain.Award) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		err := r.failErr
		r.failErr = nil
		return false, err
	}
	k := bidKey{a.CampaignID, a.BidderID}
	if _, ok := r.awards[k]; ok {
		return false, nil
	}
	cp := *a
	cp.CreatedAt = time.Now()
	r.awards[k] = cp
	return true, nil
}

func (r *fakeAwardRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]domain.Award, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Award
	for k, a := range r.awards {
		if k.campaign == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAwardRepo) CountByCampaign(_ context.Context, campaignID uuid.UUID) (int64, error) {
	list, _ := r.ListByCampaign(nil, campaignID)
	return int64(len(list)), nil
}

// fakeInventoryRepo simulates the durable product row: a mutex plays the
// row lock, remaining/version mimic the guarded decrement. reserveErrs
// injects failures into consecutive Reserve calls.
type fakeInventoryRepo struct {
	mu          sync.Mutex
	remaining   map[uuid.UUID]int64
	version     map[uuid.UUID]int64
	reserveErrs []error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		remaining: make(map[uuid.UUID]int64),
		version:   make(map[uuid.UUID]int64),
	}
}

func (r *fakeInventoryRepo) set(productID uuid.UUID, remaining int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining[productID] = remaining
}

func (r *fakeInventoryRepo) Reserve(_ context.Context, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reserveErrs) > 0 {
		err := r.reserveErrs[0]
		r.reserveErrs = r.reserveErrs[1:]
		if err != nil {
			return err
		}
	}
	if r.remaining[productID] < 1 {
		return port.ErrInsufficientStock
	}
	r.remaining[productID]--
	r.version[productID]++
	return nil
}

func (r *fakeInventoryRepo) Release(_ context.Context, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining[productID]++
	r.version[productID]++
	return nil
}

func (r *fakeInventoryRepo) Remaining(_ context.Context, productID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining[productID], nil
}

// fakeNotifier records every event it was handed.
type fakeNotifier struct {
	mu        sync.Mutex
	accepted  []port.BidAccepted
	snapshots []port.RankingSnapshot
	ended     map[uuid.UUID]map[uuid.UUID]port.FinalResult
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ended: make(map[uuid.UUID]map[uuid.UUID]port.FinalResult)}
}

func (n *fakeNotifier) BidAccepted(_, _ uuid.UUID, ev port.BidAccepted) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, ev)
}

func (n *fakeNotifier) BroadcastSnapshot(_ uuid.UUID, snap port.RankingSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, snap)
}

func (n *fakeNotifier) CampaignEnded(campaignID uuid.UUID, winners map[uuid.UUID]port.FinalResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended[campaignID] = winners
}
