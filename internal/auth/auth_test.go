package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"geosm/internal/featureflags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", digest)
	assert.True(t, h.Verify("s3cret!", digest))
	assert.False(t, h.Verify("wrong", digest))
	assert.False(t, h.Verify("s3cret!", "not-a-digest"))
}

func TestRecaptcha_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptcha("secret")
	v.Endpoint = srv.URL

	ok, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecaptcha_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewRecaptcha("secret")
	v.Endpoint = srv.URL
	_, err := v.Verify(context.Background(), "good")
	assert.Error(t, err)
}

type denyAll struct{ calls int }

func (d *denyAll) Verify(context.Context, string) (bool, error) {
	d.calls++
	return false, nil
}

func TestGated(t *testing.T) {
	inner := &denyAll{}

	off := Gated{Flags: featureflags.NewManager("captcha=off"), Next: inner}
	ok, err := off.Verify(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, inner.calls)

	on := Gated{Flags: featureflags.NewManager("captcha=on"), Next: inner}
	ok, err = on.Verify(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, inner.calls)
}
