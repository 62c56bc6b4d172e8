package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSuccess(t *testing.T) {
	var gotTTL, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTTL = r.Header.Get("TTL")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(Config{})
	err := c.Send(context.Background(), Subscription{Endpoint: srv.URL}, []byte(`{"title":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "60", gotTTL)
	assert.Equal(t, "application/json", gotContentType)
}

func TestSendGoneEndpointIsPermanent(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(Config{})
		err := c.Send(context.Background(), Subscription{Endpoint: srv.URL}, []byte(`{}`))
		require.Error(t, err)
		assert.True(t, IsPermanent(err), "status %d should be permanent", status)

		srv.Close()
	}
}

func TestSendServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{})
	err := c.Send(context.Background(), Subscription{Endpoint: srv.URL}, []byte(`{}`))
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}
