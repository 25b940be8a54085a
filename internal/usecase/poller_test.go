package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"SupraView/internal/domain/models"
)

// fakeQuoteSource returns scripted responses, one per call, repeating the
// last script entry once exhausted.
type fakeQuoteSource struct {
	mu      sync.Mutex
	script  []func(models.QuoteQuery) ([]models.Quote, error)
	calls   int
	queries []models.QuoteQuery
}

func (f *fakeQuoteSource) FetchQuotes(_ context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	i := f.calls
	f.calls++
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i](q)
}

func (f *fakeQuoteSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quoteAt(ts time.Time, avg string) models.Quote {
	return models.Quote{Timestamp: ts, Average: decimal.RequireFromString(avg)}
}

func fixedQuotes(quotes ...models.Quote) func(models.QuoteQuery) ([]models.Quote, error) {
	return func(models.QuoteQuery) ([]models.Quote, error) { return quotes, nil }
}

func fixedErr(err error) func(models.QuoteQuery) ([]models.Quote, error) {
	return func(models.QuoteQuery) ([]models.Quote, error) { return nil, err }
}

// recorder collects every metrics call for assertions.
type recorder struct {
	mu        sync.Mutex
	cycles    map[string]int
	errors    map[string]int
	lastPrice float64
}

func newRecorder() *recorder {
	return &recorder{cycles: map[string]int{}, errors: map[string]int{}}
}

func (r *recorder) RecordPollCycle(pair, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles[outcome]++
}

func (r *recorder) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[kind]++
}

func (r *recorder) RecordLastPrice(pair string, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastPrice = price
}

func (r *recorder) RecordLatency(op string, seconds float64) {}

func (r *recorder) outcome(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles[name]
}

func pollerConfig() PollerConfig {
	return PollerConfig{
		Pair:               "SUPRA/USDT",
		InstrumentID:       "1009",
		ProviderName:       "Supra Premium",
		Interval:           20 * time.Millisecond,
		Range:              30 * 24 * time.Hour,
		GranularitySeconds: 7200,
		HistoryWindow:      5 * time.Minute,
	}
}

func TestPollerEmitsLatestQuote(t *testing.T) {
	now := time.Now()
	source := &fakeQuoteSource{script: []func(models.QuoteQuery) ([]models.Quote, error){
		// Latest entry first, per the feed's contract.
		fixedQuotes(quoteAt(now, "5.5"), quoteAt(now.Add(-2*time.Hour), "5.0")),
	}}

	var mu sync.Mutex
	var got []*models.PriceUpdate
	handler := UpdateHandlerFunc(func(u *models.PriceUpdate, _ models.Direction) {
		mu.Lock()
		got = append(got, u)
		mu.Unlock()
	})

	rec := newRecorder()
	p := NewPricePoller(pollerConfig(), source, rec, nil, handler)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no update emitted before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	first := got[0]
	mu.Unlock()
	if !first.Average.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("emitted average = %s, want 5.5 (first element of response)", first.Average)
	}
	if first.CatalogInfo.Pair != "SUPRA/USDT" || first.CatalogInfo.Provider != "Supra Premium" {
		t.Errorf("catalog info = %+v", first.CatalogInfo)
	}

	update, _ := p.Latest()
	if update == nil || !update.Average.Equal(first.Average) {
		t.Error("Latest() should reflect the emitted update")
	}
}

func TestPollerQueryShape(t *testing.T) {
	source := &fakeQuoteSource{script: []func(models.QuoteQuery) ([]models.Quote, error){
		fixedQuotes(),
	}}
	p := NewPricePoller(pollerConfig(), source, nil, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	deadline := time.After(time.Second)
	for source.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no fetch before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	source.mu.Lock()
	q := source.queries[0]
	source.mu.Unlock()

	if q.ForceUpdate {
		t.Error("continuous polling must not force updates")
	}
	if q.Granularity != 7200 {
		t.Errorf("granularity = %d, want 7200", q.Granularity)
	}
	if span := q.End.Sub(q.Start); span != 30*24*time.Hour {
		t.Errorf("query span = %s, want 720h", span)
	}
}

func TestPollerErrorThenRecovery(t *testing.T) {
	now := time.Now()
	source := &fakeQuoteSource{script: []func(models.QuoteQuery) ([]models.Quote, error){
		fixedErr(models.TransportErrorf("catalog quotes", context.DeadlineExceeded)),
		fixedQuotes(quoteAt(now, "4.2")),
	}}

	emitted := make(chan *models.PriceUpdate, 8)
	handler := UpdateHandlerFunc(func(u *models.PriceUpdate, _ models.Direction) {
		emitted <- u
	})

	rec := newRecorder()
	p := NewPricePoller(pollerConfig(), source, rec, nil, handler)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	select {
	case u := <-emitted:
		if !u.Average.Equal(decimal.RequireFromString("4.2")) {
			t.Errorf("recovered update average = %s, want 4.2", u.Average)
		}
	case <-time.After(time.Second):
		t.Fatal("poller did not recover after a failed cycle")
	}

	if rec.outcome("error") == 0 {
		t.Error("failed cycle was not recorded")
	}
}

func TestPollerEmptyResponseEmitsNothing(t *testing.T) {
	source := &fakeQuoteSource{script: []func(models.QuoteQuery) ([]models.Quote, error){
		fixedQuotes(),
	}}

	handler := UpdateHandlerFunc(func(u *models.PriceUpdate, _ models.Direction) {
		t.Error("no update should be emitted for an empty response")
	})

	rec := newRecorder()
	p := NewPricePoller(pollerConfig(), source, rec, nil, handler)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(time.Second)
	for rec.outcome("no_data") < 2 {
		select {
		case <-deadline:
			t.Fatal("expected repeated no_data cycles")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if update, direction := p.Latest(); update != nil || direction != models.DirectionNone {
		t.Error("Latest() must stay empty when nothing was emitted")
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	source := &fakeQuoteSource{script: []func(models.QuoteQuery) ([]models.Quote, error){
		fixedQuotes(quoteAt(time.Now(), "1")),
	}}
	p := NewPricePoller(pollerConfig(), source, nil, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
	}
}
