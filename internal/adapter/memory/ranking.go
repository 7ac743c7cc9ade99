package memory

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/port"
)

// Rankings is the in-process realization of the per-campaign ranking
// index: one order-statistic treap per campaign, keyed by
// (score descending, insertion order ascending). Update, rank and top-K
// are O(log n); size is O(1).
type Rankings struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]*campaignIndex
}

// NewRankings returns an empty registry.
func NewRankings() *Rankings {
	return &Rankings{campaigns: make(map[uuid.UUID]*campaignIndex)}
}

func (r *Rankings) index(campaignID uuid.UUID, create bool) *campaignIndex {
	r.mu.RLock()
	ci := r.campaigns[campaignID]
	r.mu.RUnlock()
	if ci != nil || !create {
		return ci
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ci = r.campaigns[campaignID]; ci == nil {
		ci = &campaignIndex{
			byBidder: make(map[uuid.UUID]entry),
			rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		}
		r.campaigns[campaignID] = ci
	}
	return ci
}

// Update inserts or replaces the bidder's entry. The bidder's original
// insertion order survives resubmission so equal scores keep a stable
// tie-break. An update whose submission count does not exceed the entry
// already present lost a resubmission race and is dropped.
func (r *Rankings) Update(campaignID, bidderID uuid.UUID, score, price decimal.Decimal, submissions int) {
	ci := r.index(campaignID, true)
	ci.mu.Lock()
	defer ci.mu.Unlock()

	var seq uint64
	if old, ok := ci.byBidder[bidderID]; ok {
		if submissions <= old.submissions {
			return
		}
		ci.root = remove(ci.root, old.k)
		seq = old.k.seq
	} else {
		seq = ci.nextSeq
		ci.nextSeq++
	}
	k := key{score: score, seq: seq}
	n := &node{k: k, bidder: bidderID, price: price, prio: ci.rng.Uint64(), size: 1}
	l, rest := split(ci.root, k)
	ci.root = merge(merge(l, n), rest)
	ci.byBidder[bidderID] = entry{k: k, price: price, submissions: submissions}
}

// RankOf returns the bidder's 1-based descending rank.
func (r *Rankings) RankOf(campaignID, bidderID uuid.UUID) (int, bool) {
	ci := r.index(campaignID, false)
	if ci == nil {
		return 0, false
	}
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	e, ok := ci.byBidder[bidderID]
	if !ok {
		return 0, false
	}
	return ci.rank(e.k), true
}

// TopK returns the k highest entries in descending order.
func (r *Rankings) TopK(campaignID uuid.UUID, k int) []port.RankEntry {
	ci := r.index(campaignID, false)
	if ci == nil || k <= 0 {
		return nil
	}
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	out := make([]port.RankEntry, 0, min(k, size(ci.root)))
	var walk func(n *node) bool
	walk = func(n *node) bool {
		if n == nil {
			return true
		}
		if !walk(n.left) {
			return false
		}
		if len(out) == k {
			return false
		}
		out = append(out, port.RankEntry{
			Rank:     len(out) + 1,
			BidderID: n.bidder,
			Score:    n.k.score,
			Price:    n.price,
		})
		return walk(n.right)
	}
	walk(ci.root)
	return out
}

// Size returns the number of distinct bidders in the campaign.
func (r *Rankings) Size(campaignID uuid.UUID) int {
	ci := r.index(campaignID, false)
	if ci == nil {
		return 0
	}
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return size(ci.root)
}

// Stats aggregates total participants, the top score and the Kth score.
func (r *Rankings) Stats(campaignID uuid.UUID, k int) port.RankingStats {
	ci := r.index(campaignID, false)
	if ci == nil {
		return port.RankingStats{}
	}
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	st := port.RankingStats{TotalParticipants: size(ci.root)}
	if top := kth(ci.root, 1); top != nil {
		s := top.k.score
		st.MaxScore = &s
	}
	if k > 0 && st.TotalParticipants >= k {
		if nth := kth(ci.root, k); nth != nil {
			s := nth.k.score
			st.MinWinningScore = &s
		}
	}
	return st
}

type entry struct {
	k           key
	price       decimal.Decimal
	submissions int
}

// key orders entries by score descending, then by first submission order.
type key struct {
	score decimal.Decimal
	seq   uint64
}

func (k key) before(o key) bool {
	switch c := k.score.Cmp(o.score); {
	case c > 0:
		return true
	case c < 0:
		return false
	default:
		return k.seq < o.seq
	}
}

type campaignIndex struct {
	mu       sync.RWMutex
	root     *node
	byBidder map[uuid.UUID]entry
	nextSeq  uint64
	rng      *rand.Rand
}

// rank returns the 1-based position of k, assuming k is present.
func (ci *campaignIndex) rank(k key) int {
	n, r := ci.root, 0
	for n != nil {
		switch {
		case k.before(n.k):
			n = n.left
		case n.k.before(k):
			r += size(n.left) + 1
			n = n.right
		default:
			return r + size(n.left) + 1
		}
	}
	return 0
}

type node struct {
	k           key
	bidder      uuid.UUID
	price       decimal.Decimal
	prio        uint64
	size        int
	left, right *node
}

func size(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) pull() {
	n.size = 1 + size(n.left) + size(n.right)
}

func merge(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if l.prio >= r.prio {
		l.right = merge(l.right, r)
		l.pull()
		return l
	}
	r.left = merge(l, r.left)
	r.pull()
	return r
}

// split separates n into entries ranking strictly before k and the rest.
func split(n *node, k key) (l, r *node) {
	if n == nil {
		return nil, nil
	}
	if n.k.before(k) {
		n.right, r = split(n.right, k)
		n.pull()
		return n, r
	}
	l, n.left = split(n.left, k)
	n.pull()
	return l, n
}

func remove(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case k.before(n.k):
		n.left = remove(n.left, k)
	case n.k.before(k):
		n.right = remove(n.right, k)
	default:
		return merge(n.left, n.right)
	}
	n.pull()
	return n
}

// kth returns the i-th entry (1-based) in rank order.
func kth(n *node, i int) *node {
	for n != nil {
		ls := size(n.left)
		switch {
		case i == ls+1:
			return n
		case i <= ls:
			n = n.left
		default:
			i -= ls + 1
			n = n.right
		}
	}
	return nil
}
