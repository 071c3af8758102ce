package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Katowice", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[
			{"display_name":"Katowice, Silesia","lat":"50.2598","lon":"19.0215"},
			{"display_name":"broken","lat":"x","lon":"19"}
		]`))
	}))
	defer srv.Close()

	places, err := NewNominatim(srv.URL).Search(context.Background(), "Katowice")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Katowice, Silesia", places[0].Description)
	assert.InDelta(t, 50.2598, places[0].Latitude, 1e-9)
}

func TestNominatim_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL).Search(context.Background(), "x")
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	in := []Place{{Description: "A", Latitude: 1}, {Description: "B"}, {Description: "A", Latitude: 2}}
	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Latitude)
	assert.Equal(t, "B", out[1].Description)
}
