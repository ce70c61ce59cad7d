// Package cache holds the last-known-good snapshots of the user's own
// account and the account roster, tracks their staleness, and converges
// them back to server state after every mutation.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dkurbatov/pocketbank/internal/client/api"
	"github.com/dkurbatov/pocketbank/internal/client/models"
	"github.com/dkurbatov/pocketbank/internal/logging"
)

// State is the lifecycle of one snapshot: Fresh -> Stale -> Refreshing
// -> Fresh, with a failed refresh falling back to Stale.
type State int

const (
	// Stale is the zero value: a snapshot that has never been fetched,
	// or is known to be outdated because a mutation occurred.
	Stale State = iota
	Refreshing
	Fresh
)

func (s State) String() string {
	switch s {
	case Refreshing:
		return "refreshing"
	case Fresh:
		return "fresh"
	default:
		return "stale"
	}
}

// Snapshot names published on invalidation events.
type Snapshot string

const (
	SnapshotSelf   Snapshot = "self"
	SnapshotRoster Snapshot = "roster"
)

// AccountView is a read of the self snapshot: the last known account
// (nil before the first successful fetch) plus its state, so callers can
// show a loading indicator without blocking.
type AccountView struct {
	Account *models.Account
	State   State
}

// RosterView is a read of the roster snapshot.
type RosterView struct {
	Accounts map[string]*models.Account
	State    State
}

// Cache is the account cache and consistency orchestrator. It is the
// only writer of snapshot data; everything else reads through it.
type Cache struct {
	client api.Client
	log    logging.Logger

	mu          sync.Mutex
	self        *models.Account
	selfState   State
	selfGen     uint64
	roster      map[string]*models.Account
	rosterState State
	rosterGen   uint64
	subs        []chan Snapshot
}

func New(client api.Client, log logging.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Self returns the last known own-account snapshot without blocking.
func (c *Cache) Self() AccountView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return AccountView{Account: c.self, State: c.selfState}
}

// Roster returns the last known roster snapshot without blocking.
func (c *Cache) Roster() RosterView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RosterView{Accounts: c.roster, State: c.rosterState}
}

// Lookup finds an account in the roster snapshot by id.
func (c *Cache) Lookup(id string) (*models.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.roster[id]
	return acc, ok
}

// Subscribe returns a channel receiving a Snapshot name each time that
// snapshot is invalidated. Consumers pull a fresh read on their own
// schedule. Slow consumers miss events rather than block the publisher.
func (c *Cache) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 8)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Invalidate marks both snapshots stale and publishes invalidation
// events. A mutation can change any account's balance, including peers',
// so self and roster are always invalidated together.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.selfState = Stale
	c.selfGen++
	c.rosterState = Stale
	c.rosterGen++
	subs := make([]chan Snapshot, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, ch := range subs {
		for _, s := range []Snapshot{SnapshotSelf, SnapshotRoster} {
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Reset drops all cached data, e.g. on logout.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.self = nil
	c.selfState = Stale
	c.selfGen++
	c.roster = nil
	c.rosterState = Stale
	c.rosterGen++
}

// Refresh fetches every stale snapshot. Self and roster are independent
// reads and proceed concurrently; a failure of either leaves that one
// Stale while the other may still settle to Fresh. Snapshots already
// Fresh or Refreshing are left alone.
func (c *Cache) Refresh(ctx context.Context) error {
	refreshSelf, selfGen := c.beginRefresh(&c.selfState, &c.selfGen)
	refreshRoster, rosterGen := c.beginRefresh(&c.rosterState, &c.rosterGen)

	// Deliberately not errgroup.WithContext: one side failing must not
	// cancel the other's fetch.
	var g errgroup.Group

	if refreshSelf {
		g.Go(func() error {
			acc, err := c.client.GetMe(ctx)
			c.settleSelf(ctx, acc, selfGen, err)
			return err
		})
	}

	if refreshRoster {
		g.Go(func() error {
			accs, err := c.client.ListUsers(ctx)
			c.settleRoster(ctx, accs, rosterGen, err)
			return err
		})
	}

	return g.Wait()
}

// beginRefresh transitions a snapshot Stale -> Refreshing under the lock
// and records the generation the fetch is allowed to settle against.
func (c *Cache) beginRefresh(state *State, gen *uint64) (bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *state != Stale {
		return false, 0
	}
	*state = Refreshing
	return true, *gen
}

// settleSelf installs a fetched self snapshot. If another invalidation
// happened while the fetch was in flight, the result is discarded and
// the snapshot stays Stale, so stale data is never labeled fresh.
func (c *Cache) settleSelf(ctx context.Context, acc *models.Account, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.selfState = Stale
		c.log.Warn(ctx, "self refresh failed", "err", err)
		return
	}
	if c.selfGen != gen {
		c.selfState = Stale
		c.log.Debug(ctx, "self refresh superseded by newer invalidation")
		return
	}
	c.self = acc
	c.selfState = Fresh
}

func (c *Cache) settleRoster(ctx context.Context, accs []*models.Account, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.rosterState = Stale
		c.log.Warn(ctx, "roster refresh failed", "err", err)
		return
	}
	if c.rosterGen != gen {
		c.rosterState = Stale
		c.log.Debug(ctx, "roster refresh superseded by newer invalidation")
		return
	}
	byID := make(map[string]*models.Account, len(accs))
	for _, a := range accs {
		byID[a.ID] = a
	}
	c.roster = byID
	c.rosterState = Fresh
}
