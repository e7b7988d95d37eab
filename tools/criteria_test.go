package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/realestate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	listings []realestate.Listing
	err      error
	got      realestate.Criteria
}

func (s *stubSearcher) Snapshot(ctx context.Context, crit realestate.Criteria) ([]realestate.Listing, error) {
	s.got = crit
	return s.listings, s.err
}

func listings(n int) []realestate.Listing {
	out := make([]realestate.Listing, n)
	for i := range out {
		out[i].Address.OneLine = fmt.Sprintf("%d Main St, Austin, TX", i+1)
	}
	return out
}

func criteriaArgs() map[string]interface{} {
	return map[string]interface{}{"location": "Austin, TX", "min_beds": 3, "max_price": 400000}
}

func TestCriteriaSearchNoResultsAgainstProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"property":[]}`))
	}))
	defer srv.Close()

	provider := realestate.NewClient("k", realestate.WithBaseURL(srv.URL))
	r := newRegistry(t, &CriteriaSearchTool{Provider: provider})

	out, err := r.Invoke(context.Background(), "find-properties-with-criteria", criteriaArgs())
	require.NoError(t, err)
	assert.Equal(t, "No properties were found matching the specified criteria.", out)
}

func TestCriteriaSearchPassesCriteria(t *testing.T) {
	stub := &stubSearcher{listings: listings(2)}
	r := newRegistry(t, &CriteriaSearchTool{Provider: stub})

	args := map[string]interface{}{"location": "Austin, TX", "min_beds": float64(3), "max_price": float64(400000)}
	out, err := r.Invoke(context.Background(), "find-properties-with-criteria", args)
	require.NoError(t, err)
	assert.Equal(t, realestate.Criteria{Address: "Austin, TX", MinBeds: 3, MaxValue: 400000}, stub.got)
	assert.Equal(t, "Found 2 properties: 1 Main St, Austin, TX; 2 Main St, Austin, TX", out)
}

func TestCriteriaSearchCapsAtFive(t *testing.T) {
	out, err := (&CriteriaSearchTool{Provider: &stubSearcher{listings: listings(8)}}).
		Execute(context.Background(), criteriaArgs())
	require.NoError(t, err)
	assert.Equal(t, "Found 5 properties: 1 Main St, Austin, TX; 2 Main St, Austin, TX; "+
		"3 Main St, Austin, TX; 4 Main St, Austin, TX; 5 Main St, Austin, TX", out)
}

func TestCriteriaSearchReportsProviderFailureAsText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"http status", &realestate.UpstreamHTTPError{StatusCode: 401}, "Error: the property data service responded with status 401."},
		{"transport", errors.Plain("dial tcp: timeout"), "Error: the property data service could not be reached."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, &CriteriaSearchTool{Provider: &stubSearcher{err: tt.err}})
			out, err := r.Invoke(context.Background(), "find-properties-with-criteria", criteriaArgs())
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCriteriaSearchRequiresAllFields(t *testing.T) {
	stub := &stubSearcher{}
	r := NewToolRegistry(zerolog.Nop())
	require.NoError(t, r.Register(&CriteriaSearchTool{Provider: stub}))

	_, err := r.Invoke(context.Background(), "find-properties-with-criteria", map[string]interface{}{"location": "Austin, TX"})
	var verr *SchemaValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"max_price", "min_beds"}, verr.Fields)
	assert.Equal(t, realestate.Criteria{}, stub.got)
}
