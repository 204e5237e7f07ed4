// Package history accumulates an employee's status log page by page.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/nkiryanov/statusboard/internal/api"
	"github.com/nkiryanov/statusboard/internal/apperrors"
	"github.com/nkiryanov/statusboard/internal/models"
)

type historyAPI interface {
	History(ctx context.Context, employeeID int64, page int) (api.HistoryPage, error)
}

// Accumulator holds the fetched pages for one employee. Page 1 replaces the
// items, later pages append in response order. No de-duplication happens, so
// pages must only ever advance; LoadMore enforces that together with the
// in-flight guard.
type Accumulator struct {
	api historyAPI

	mu         sync.Mutex
	employeeID int64
	page       int
	items      []models.StatusLogEntry
	hasMore    bool
	loading    bool
	gen        uint64
}

func NewAccumulator(historyAPI historyAPI, employeeID int64) *Accumulator {
	return &Accumulator{
		api:        historyAPI,
		employeeID: employeeID,
		page:       1,
		hasMore:    true,
	}
}

// Reset retargets the accumulator: back to page 1 with no items.
func (a *Accumulator) Reset(employeeID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.employeeID = employeeID
	a.page = 1
	a.items = nil
	a.hasMore = true
	a.loading = false
	a.gen++
}

// LoadPage fetches the current page and folds it into the accumulated items.
// A call while a fetch is in flight fails without touching the server.
func (a *Accumulator) LoadPage(ctx context.Context) error {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return apperrors.ErrFetchInProgress
	}
	a.loading = true
	employeeID, page, gen := a.employeeID, a.page, a.gen
	a.mu.Unlock()

	result, err := a.api.History(ctx, employeeID, page)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gen != gen {
		// Reset happened while the fetch was in flight: the page is stale and
		// the loading flag now belongs to whatever fetch the reset started.
		return nil
	}
	a.loading = false

	if err != nil {
		return fmt.Errorf("failed to fetch history page %d: %w", page, err)
	}

	if page == 1 {
		a.items = result.Results
	} else {
		a.items = append(a.items, result.Results...)
	}
	a.hasMore = result.HasMore
	return nil
}

// LoadMore advances to the next page. It refuses to advance while a fetch is
// in flight or when the server indicated no further pages; the caller then
// runs LoadPage to fetch the new page.
func (a *Accumulator) LoadMore() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loading {
		return apperrors.ErrFetchInProgress
	}
	if !a.hasMore {
		return apperrors.ErrNoMorePages
	}

	a.page++
	return nil
}

// Items returns the accumulated entries in fetch order.
func (a *Accumulator) Items() []models.StatusLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	items := make([]models.StatusLogEntry, len(a.items))
	copy(items, a.items)
	return items
}

func (a *Accumulator) Page() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page
}

func (a *Accumulator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore
}

func (a *Accumulator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}
