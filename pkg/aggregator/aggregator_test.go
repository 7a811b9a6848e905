package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	mock "github.com/Sternrassler/tmio-cotd-client/internal/testutil"
	"github.com/Sternrassler/tmio-cotd-client/pkg/client"
	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"github.com/Sternrassler/tmio-cotd-client/pkg/pagination"
	"github.com/Sternrassler/tmio-cotd-client/pkg/player"
)

// stubResolver resolves names from a map; unknown names are not found.
type stubResolver struct {
	ids   map[string]string
	calls []string
}

func (r *stubResolver) Resolve(_ context.Context, name string) (cotd.ResolvedPlayer, error) {
	r.calls = append(r.calls, name)
	id, ok := r.ids[name]
	if !ok {
		return cotd.ResolvedPlayer{}, cotd.NewPlayerNotFound(name)
	}
	return cotd.ResolvedPlayer{Candidate: cotd.Candidate{ID: id, DisplayName: name}}, nil
}

// stubPaginator returns canned histories and, optionally, a scripted sequence of errors.
type stubPaginator struct {
	series map[string]cotd.TimeSeries
	errs   map[string][]error
	calls  []string
}

func (p *stubPaginator) FetchAll(_ context.Context, id string) (cotd.TimeSeries, error) {
	p.calls = append(p.calls, id)
	if queue := p.errs[id]; len(queue) > 0 {
		err := queue[0]
		p.errs[id] = queue[1:]
		if err != nil {
			return nil, err
		}
	}
	return p.series[id], nil
}

func day(d int, rank int) cotd.Entry {
	return cotd.Entry{Date: time.Date(2023, 4, d, 0, 0, 0, 0, time.UTC), Rank: rank}
}

type AggregatorSuite struct {
	suite.Suite

	resolver  *stubResolver
	paginator *stubPaginator
	failures  map[string]error
	agg       *Aggregator
}

func (s *AggregatorSuite) SetupTest() {
	s.resolver = &stubResolver{ids: map[string]string{"alice": "alice-id", "carol": "carol-id"}}
	s.paginator = &stubPaginator{
		series: map[string]cotd.TimeSeries{
			"alice-id": {day(15, 137), day(14, 12)},
			"carol-id": {day(1, 3)},
		},
		errs: map[string][]error{},
	}
	s.failures = map[string]error{}
	s.agg = New(s.resolver, s.paginator, Config{
		OnError: func(name string, err error) { s.failures[name] = err },
	})
}

func (s *AggregatorSuite) TestFailedPlayerIsOmitted() {
	results := s.agg.Run(context.Background(), []string{"alice", "bob"})

	s.Require().Len(results, 1)
	s.Equal(cotd.TimeSeries{day(15, 137), day(14, 12)}, results["alice"])
	s.NotContains(results, "bob")

	s.Require().Contains(s.failures, "bob")
	s.ErrorIs(s.failures["bob"], cotd.ErrPlayerNotFound)
}

func (s *AggregatorSuite) TestProcessesNamesInOrder() {
	s.agg.Run(context.Background(), []string{"carol", "bob", "alice"})

	s.Equal([]string{"carol", "bob", "alice"}, s.resolver.calls)
	s.Equal([]string{"carol-id", "alice-id"}, s.paginator.calls)
}

func (s *AggregatorSuite) TestPaginationFailureDropsPlayer() {
	s.paginator.errs["alice-id"] = []error{cotd.NewUnexpectedStatus("https://trackmania.io/x", 500)}

	results := s.agg.Run(context.Background(), []string{"alice", "carol"})

	s.NotContains(results, "alice")
	s.Contains(results, "carol")
	s.ErrorIs(s.failures["alice"], cotd.ErrUnexpectedStatus)
}

func (s *AggregatorSuite) TestRepeatedNameIsRefetched() {
	results := s.agg.Run(context.Background(), []string{"alice", "alice"})

	s.Len(results, 1)
	s.Equal([]string{"alice", "alice"}, s.resolver.calls)
	s.Equal([]string{"alice-id", "alice-id"}, s.paginator.calls)
}

func (s *AggregatorSuite) TestLaterFailureKeepsEarlierSuccess() {
	s.paginator.errs["alice-id"] = []error{nil, errors.New("connection reset")}

	results := s.agg.Run(context.Background(), []string{"alice", "alice"})

	s.Equal(cotd.TimeSeries{day(15, 137), day(14, 12)}, results["alice"])
	s.Contains(s.failures, "alice")
}

func (s *AggregatorSuite) TestEmptyHistoryIsKept() {
	s.paginator.series["carol-id"] = cotd.TimeSeries{}

	results := s.agg.Run(context.Background(), []string{"carol"})

	s.Require().Contains(results, "carol")
	s.Empty(results["carol"])
}

func (s *AggregatorSuite) TestCancelledContextSkipsRemaining() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := s.agg.Run(ctx, []string{"alice", "carol"})

	s.Empty(results)
	s.Empty(s.resolver.calls)
	s.Empty(s.failures)
}

func (s *AggregatorSuite) TestNilOnError() {
	agg := New(s.resolver, s.paginator, Config{})

	results := agg.Run(context.Background(), []string{"bob", "alice"})
	s.Len(results, 1)
}

func (s *AggregatorSuite) TestFailureMetrics() {
	before := testutil.ToFloat64(playerFailuresTotal.WithLabelValues(string(cotd.KindPlayerNotFound)))

	s.agg.Run(context.Background(), []string{"bob", "dave"})

	after := testutil.ToFloat64(playerFailuresTotal.WithLabelValues(string(cotd.KindPlayerNotFound)))
	s.Equal(2.0, after-before)
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

// TestRun_EndToEnd drives the real resolver and paginator against a fake API.
func TestRun_EndToEnd(t *testing.T) {
	server := mock.NewMockTMIO()
	defer server.Close()

	newest := time.Date(2023, 4, 30, 0, 0, 0, 0, time.UTC)
	server.AddSearch("alice", mock.SearchPlayer{ID: "alice-id", Name: "alice"})
	server.AddSearch("bo",
		mock.SearchPlayer{ID: "bob-id", Name: "bob"},
		mock.SearchPlayer{ID: "boris-id", Name: "boris"},
	)
	server.SetHistory("alice-id", mock.NewHistory(30, newest))

	cfg := client.DefaultConfig("TestApp/1.0.0")
	cfg.RateLimit.Sleep = func(context.Context, time.Duration) error { return nil }
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	agg := New(
		player.NewResolver(c, player.Config{BaseURL: server.URL()}),
		pagination.NewPaginator(pagination.NewHTTPPageFetcher(c, server.URL())),
		Config{},
	)

	results := agg.Run(context.Background(), []string{"alice", "bo", "nobody"})

	require.Len(t, results, 1)
	assert.Len(t, results["alice"], 30)
	assert.Equal(t, cotd.Entry{Date: newest, Rank: 1}, results["alice"][0])
	assert.Equal(t, []int{0, 1}, server.PageRequests("alice-id"))
}
