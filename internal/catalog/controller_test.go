package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves pages out of a fixed item set, recording every query.
// It paginates over the unfiltered set the way the real backend does.
type fakeLister struct {
	mu     sync.Mutex
	items  []Product
	calls  []Query
	err    error
	onList func(q Query)
}

func (f *fakeLister) List(ctx context.Context, q Query) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	items := f.matching(q)
	err := f.err
	hook := f.onList
	f.mu.Unlock()

	if hook != nil {
		hook(q)
	}
	if err != nil {
		return Result{}, err
	}

	total := len(items)
	totalPages := (total + q.Limit - 1) / q.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	start := (q.Page - 1) * q.Limit
	end := start + q.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Items:      items[start:end],
		Page:       q.Page,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (f *fakeLister) matching(q Query) []Product {
	out := make([]Product, 0, len(f.items))
	for _, item := range f.items {
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		if q.Materials != "" && item.Materials != q.Materials {
			continue
		}
		if q.Name != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(q.Name)) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (f *fakeLister) queries() []Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Query, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeLister) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func products(n int) []Product {
	items := make([]Product, n)
	for i := range items {
		items[i] = Product{
			ID:       fmt.Sprintf("p%d", i+1),
			Name:     fmt.Sprintf("Product %d", i+1),
			Category: "rings",
			Price:    float64(10 * (i + 1)),
		}
	}
	return items
}

// ============================================
// Basic Loading Tests
// ============================================

func TestController_Load(t *testing.T) {
	lister := &fakeLister{items: products(17)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(context.Background()))

	snap := ctrl.Snapshot()
	assert.Len(t, snap.Products, 8)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 3, snap.TotalPages)
	assert.Equal(t, 17, snap.Total)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
}

func TestController_Load_DerivesFacets(t *testing.T) {
	lister := &fakeLister{items: []Product{
		{ID: "p1", Category: "rings", Materials: "silver"},
		{ID: "p2", Category: "necklaces", Materials: "gold"},
		{ID: "p3", Category: "rings", Materials: "silver"},
		{ID: "p4", Materials: ""},
	}}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(context.Background()))

	snap := ctrl.Snapshot()
	// Distinct, first-seen order, empties dropped.
	assert.Equal(t, []string{"rings", "necklaces"}, snap.Categories)
	assert.Equal(t, []string{"silver", "gold"}, snap.Materials)
}

// ============================================
// Filter Operation Tests
// ============================================

func TestController_SelectCategory_ResetsToPageOne(t *testing.T) {
	lister := &fakeLister{items: products(30)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.NoError(t, ctrl.GoToPage(ctx, 3))
	require.Equal(t, 3, ctrl.Snapshot().Page)

	require.NoError(t, ctrl.SelectCategory(ctx, "rings"))

	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, "rings", snap.SelectedCategory)

	queries := lister.queries()
	last := queries[len(queries)-1]
	assert.Equal(t, "rings", last.Category)
	assert.Equal(t, 1, last.Page)
}

func TestController_SelectSort(t *testing.T) {
	lister := &fakeLister{items: products(5)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.SelectSort(ctx, "price", "desc"))

	snap := ctrl.Snapshot()
	assert.Equal(t, "price", snap.SortBy)
	assert.Equal(t, "desc", snap.SortOrder)

	queries := lister.queries()
	last := queries[len(queries)-1]
	assert.Equal(t, "price", last.SortBy)
	assert.Equal(t, "desc", last.Order)
}

func TestController_SelectMaterial_CarriesOtherFilters(t *testing.T) {
	lister := &fakeLister{items: products(5)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.SelectCategory(ctx, "rings"))
	require.NoError(t, ctrl.SelectMaterial(ctx, "silver"))

	queries := lister.queries()
	last := queries[len(queries)-1]
	assert.Equal(t, "rings", last.Category)
	assert.Equal(t, "silver", last.Materials)
}

// ============================================
// Pagination Tests
// ============================================

func TestController_GoToPage_OutOfRange(t *testing.T) {
	lister := &fakeLister{items: products(17)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	before := ctrl.Snapshot()
	calls := len(lister.queries())

	require.NoError(t, ctrl.GoToPage(ctx, 0))
	require.NoError(t, ctrl.GoToPage(ctx, before.TotalPages+1))

	after := ctrl.Snapshot()
	assert.Equal(t, before.Page, after.Page)
	assert.Equal(t, before.Products, after.Products)
	assert.Len(t, lister.queries(), calls)
}

func TestController_NextPrevPage(t *testing.T) {
	lister := &fakeLister{items: products(17)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))

	require.NoError(t, ctrl.NextPage(ctx))
	assert.Equal(t, 2, ctrl.Snapshot().Page)

	require.NoError(t, ctrl.PrevPage(ctx))
	assert.Equal(t, 1, ctrl.Snapshot().Page)

	// Already at page 1, PrevPage is a no-op.
	require.NoError(t, ctrl.PrevPage(ctx))
	assert.Equal(t, 1, ctrl.Snapshot().Page)
}

// ============================================
// Availability-Hiding Tests
// ============================================

func TestController_HideUnavailable_GapFreePages(t *testing.T) {
	// 25 items across backend pages of 10; items 3, 7, 15, 20 unavailable.
	items := products(25)
	for _, idx := range []int{3, 7, 15, 20} {
		items[idx-1].AvailabilityStatus = "not available"
	}
	lister := &fakeLister{items: items}
	ctrl := New(lister, Config{PageSize: 10, HideUnavailable: true})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))

	snap := ctrl.Snapshot()
	assert.Len(t, snap.Products, 10)
	assert.Equal(t, 21, snap.Total)
	assert.Equal(t, 3, snap.TotalPages)
	for _, p := range snap.Products {
		assert.NotContains(t, p.AvailabilityStatus, "not available")
	}

	// The traversal walked every backend page exactly once.
	queries := lister.queries()
	require.Len(t, queries, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{queries[0].Page, queries[1].Page, queries[2].Page})
}

func TestController_HideUnavailable_LastPageShort(t *testing.T) {
	items := products(25)
	for _, idx := range []int{3, 7, 15, 20} {
		items[idx-1].AvailabilityStatus = "unavailable"
	}
	lister := &fakeLister{items: items}
	ctrl := New(lister, Config{PageSize: 10, HideUnavailable: true})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.NoError(t, ctrl.GoToPage(ctx, 3))

	snap := ctrl.Snapshot()
	assert.Equal(t, 3, snap.Page)
	assert.Len(t, snap.Products, 1)
}

func TestController_HideUnavailable_NoGapsAcrossPages(t *testing.T) {
	items := products(25)
	for _, idx := range []int{3, 7, 15, 20} {
		items[idx-1].AvailabilityStatus = "not available"
	}
	lister := &fakeLister{items: items}
	ctrl := New(lister, Config{PageSize: 10, HideUnavailable: true})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))

	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		require.NoError(t, ctrl.GoToPage(ctx, page))
		for _, p := range ctrl.Snapshot().Products {
			assert.False(t, seen[p.ID], "duplicate item %s", p.ID)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 21)
}

func TestController_HideUnavailable_ClampsRequestedPage(t *testing.T) {
	// All but 2 items unavailable: the filtered set has one page even
	// though the backend reports three.
	items := products(25)
	for i := range items {
		if i > 1 {
			items[i].AvailabilityStatus = "not available"
		}
	}
	lister := &fakeLister{items: items}
	ctrl := New(lister, Config{PageSize: 10, HideUnavailable: true})
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 1, snap.TotalPages)
	assert.Equal(t, 2, snap.Total)
	assert.Len(t, snap.Products, 2)
}

func TestController_HideUnavailable_EmptyBackend(t *testing.T) {
	lister := &fakeLister{}
	ctrl := New(lister, Config{PageSize: 10, HideUnavailable: true})
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(context.Background()))

	snap := ctrl.Snapshot()
	assert.Empty(t, snap.Products)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 1, snap.TotalPages)
	assert.Equal(t, 0, snap.Total)
}

// ============================================
// Error Handling Tests
// ============================================

func TestController_FetchFailure_KeepsLastKnownGood(t *testing.T) {
	lister := &fakeLister{items: products(17)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	good := ctrl.Snapshot()

	lister.setErr(errors.New("backend down"))
	err := ctrl.Reload(ctx)

	require.Error(t, err)
	snap := ctrl.Snapshot()
	assert.Equal(t, LoadErrorMessage, snap.Err)
	assert.Equal(t, good.Products, snap.Products)
	assert.Equal(t, good.Page, snap.Page)
	assert.Equal(t, good.TotalPages, snap.TotalPages)
	assert.False(t, snap.Loading)
}

func TestController_RecoversAfterFailure(t *testing.T) {
	lister := &fakeLister{items: products(5)}
	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	lister.setErr(errors.New("backend down"))
	require.Error(t, ctrl.Load(ctx))
	require.NotEmpty(t, ctrl.Snapshot().Err)

	lister.setErr(nil)
	require.NoError(t, ctrl.Reload(ctx))

	snap := ctrl.Snapshot()
	assert.Empty(t, snap.Err)
	assert.Len(t, snap.Products, 5)
}

// ============================================
// Debounced Search Tests
// ============================================

func TestController_UpdateSearch_Debounces(t *testing.T) {
	lister := &fakeLister{items: products(5)}
	ctrl := New(lister, Config{PageSize: 8, SearchDebounce: 40 * time.Millisecond})
	defer ctrl.Close()
	ctx := context.Background()

	ctrl.UpdateSearch(ctx, "r")
	time.Sleep(5 * time.Millisecond)
	ctrl.UpdateSearch(ctx, "ri")
	time.Sleep(5 * time.Millisecond)
	ctrl.UpdateSearch(ctx, "rin")

	// Term is visible immediately, before any fetch.
	assert.Equal(t, "rin", ctrl.Snapshot().SearchTerm)

	time.Sleep(150 * time.Millisecond)

	queries := lister.queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "rin", queries[0].Name)
	assert.Equal(t, 1, queries[0].Page)
}

func TestController_UpdateSearch_TrimsTerm(t *testing.T) {
	lister := &fakeLister{items: products(5)}
	ctrl := New(lister, Config{PageSize: 8, SearchDebounce: 10 * time.Millisecond})
	defer ctrl.Close()

	ctrl.UpdateSearch(context.Background(), "  ring  ")
	time.Sleep(100 * time.Millisecond)

	queries := lister.queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "ring", queries[0].Name)
}

func TestController_UpdateSearch_EmptyTermRefreshesFacets(t *testing.T) {
	lister := &fakeLister{items: []Product{
		{ID: "p1", Name: "Ring", Category: "rings"},
		{ID: "p2", Name: "Chain", Category: "necklaces"},
	}}
	ctrl := New(lister, Config{PageSize: 8, SearchDebounce: 10 * time.Millisecond})
	defer ctrl.Close()
	ctx := context.Background()

	ctrl.UpdateSearch(ctx, "ring")
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, ctrl.Snapshot().Categories)

	ctrl.UpdateSearch(ctx, "")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"rings", "necklaces"}, ctrl.Snapshot().Categories)
}

// ============================================
// Stale Response Tests
// ============================================

func TestController_StaleResponseDiscarded(t *testing.T) {
	items := []Product{
		{ID: "old-1", Name: "Old", Category: "old"},
		{ID: "new-1", Name: "New", Category: "new"},
	}

	started := make(chan struct{})
	release := make(chan struct{})
	lister := &fakeLister{items: items}
	lister.onList = func(q Query) {
		if q.Category == "old" {
			close(started)
			<-release
		}
	}

	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.SelectCategory(ctx, "old")
	}()
	<-started

	// A newer filter change completes while the old fetch is stuck.
	require.NoError(t, ctrl.SelectCategory(ctx, "new"))
	require.Equal(t, "new-1", ctrl.Snapshot().Products[0].ID)

	// The old fetch finally resolves; its result must be dropped.
	close(release)
	<-done

	snap := ctrl.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "new-1", snap.Products[0].ID)
	assert.False(t, snap.Loading)
}

func TestController_FailedFetchAppliedBeforeNewerSuccess(t *testing.T) {
	lister := &fakeLister{items: []Product{
		{ID: "good-1", Name: "Good", Category: "good"},
	}}

	var (
		badStarted  = make(chan struct{})
		badRelease  = make(chan struct{})
		goodStarted = make(chan struct{})
		goodRelease = make(chan struct{})
	)
	lister.onList = func(q Query) {
		switch q.Category {
		case "bad":
			close(badStarted)
			<-badRelease
		case "good":
			close(goodStarted)
			<-goodRelease
		}
	}

	ctrl := New(lister, Config{PageSize: 8})
	defer ctrl.Close()
	ctx := context.Background()

	// The failing request gets stuck in flight with its error captured.
	lister.setErr(errors.New("backend down"))
	badDone := make(chan struct{})
	go func() {
		defer close(badDone)
		_ = ctrl.SelectCategory(ctx, "bad")
	}()
	<-badStarted

	// A newer request starts while the failing one is still pending.
	lister.setErr(nil)
	goodDone := make(chan struct{})
	go func() {
		defer close(goodDone)
		_ = ctrl.SelectCategory(ctx, "good")
	}()
	<-goodStarted

	// The older failure lands first: the error shows, but a newer fetch
	// is still outstanding.
	close(badRelease)
	<-badDone
	mid := ctrl.Snapshot()
	assert.Equal(t, LoadErrorMessage, mid.Err)
	assert.True(t, mid.Loading)

	// The newer success lands and must wipe the stale error.
	close(goodRelease)
	<-goodDone

	snap := ctrl.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "good-1", snap.Products[0].ID)
	assert.Empty(t, snap.Err)
	assert.False(t, snap.Loading)
}

func TestController_StaleSearchDiscarded(t *testing.T) {
	items := []Product{
		{ID: "r-only", Name: "r special"},
		{ID: "rin-1", Name: "rin stone"},
	}

	started := make(chan struct{})
	release := make(chan struct{})
	lister := &fakeLister{items: items}
	lister.onList = func(q Query) {
		if q.Name == "r" {
			close(started)
			<-release
		}
	}

	ctrl := New(lister, Config{PageSize: 8, SearchDebounce: time.Millisecond})
	defer ctrl.Close()
	ctx := context.Background()

	// "r" fires and gets stuck in flight.
	ctrl.UpdateSearch(ctx, "r")
	<-started

	// "rin" supersedes it and resolves first.
	ctrl.UpdateSearch(ctx, "rin")
	require.Eventually(t, func() bool {
		snap := ctrl.Snapshot()
		return len(snap.Products) == 1 && snap.Products[0].ID == "rin-1"
	}, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)

	snap := ctrl.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "rin-1", snap.Products[0].ID)
}
