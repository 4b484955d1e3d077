package wire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingLocator struct{ calls int }

func (l *countingLocator) Locate(context.Context) (string, int, error) {
	l.calls++
	return "", 0, ErrNotLocated
}

func TestResolveEndpointFallback(t *testing.T) {
	t.Parallel()
	locator := &countingLocator{}
	lookup := func(context.Context, string) ([]string, error) {
		return nil, errors.New("no such host")
	}
	tr, err := New("@", 9005, WithLocator(locator), WithLookup(lookup))
	require.NoError(t, err)

	for range 2 {
		host, port := tr.resolveEndpoint(context.Background())
		require.Equal(t, "127.0.0.1", host)
		require.Equal(t, DefaultPort, port)
	}
	require.Equal(t, 2, locator.calls)
	require.False(t, tr.resolved)
	require.True(t, tr.fallbackLogged)
}

func TestResolveEndpointExplicit(t *testing.T) {
	t.Parallel()
	lookup := func(context.Context, string) ([]string, error) {
		t.Fatal("explicit host names are not looked up")
		return nil, nil
	}
	tr, err := New("render-hub", 8080, WithLookup(lookup), WithLocator(nil))
	require.NoError(t, err)
	host, port := tr.resolveEndpoint(context.Background())
	require.Equal(t, "render-hub", host)
	require.Equal(t, 8080, port)
	require.True(t, tr.resolved)
}

func TestResolveEndpointDefaultHostResolves(t *testing.T) {
	t.Parallel()
	locator := &countingLocator{}
	lookup := func(context.Context, string) ([]string, error) {
		return []string{"10.0.0.5"}, nil
	}
	tr, err := New(DefaultHost, DefaultPort, WithLookup(lookup), WithLocator(locator))
	require.NoError(t, err)
	host, port := tr.resolveEndpoint(context.Background())
	require.Equal(t, DefaultHost, host)
	require.Equal(t, DefaultPort, port)
	require.Equal(t, 0, locator.calls)
}

func TestFrameWithoutForm(t *testing.T) {
	t.Parallel()
	tr, err := New("engine", 80, WithAppHeaders(Header{Name: "X-Tractor-Blade", Value: "0"}))
	require.NoError(t, err)
	got := string(tr.frame(Request{Verb: "monitor?q=logout&user=a"}))
	require.Equal(t, "POST /Tractor/monitor?q=logout&user=a HTTP/1.0\r\nX-Tractor-Blade: 0\r\nContent-Length: 0\r\n\r\n", got)
}
