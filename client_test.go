package tesira

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtools/tesira/ttp"
)

func TestClientRequiresDial(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)
}

func TestClientReusesSession(t *testing.T) {
	var dials atomic.Int32
	transport := newFakeTransport(
		testBanner,
		`+OK "value":-10.000000`,
		"+OK",
	)

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			dials.Add(1)
			return transport, nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	value, err := client.Get(ctx, "Level1", "level", 1)
	require.NoError(t, err)
	assert.True(t, value.Equal(ttp.Float(-10)))

	require.NoError(t, client.Toggle(ctx, "Mute1", "mute", 1))

	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, []string{
		"Level1 get level 1\n",
		"Mute1 toggle mute 1\n",
	}, transport.sentLines())

	stats := client.PoolStats()
	assert.Equal(t, int32(1), stats.TotalSessions)
	assert.Equal(t, int32(1), stats.IdleSessions)
}

func TestClientDeviceErrorKeepsSession(t *testing.T) {
	var dials atomic.Int32
	transport := newFakeTransport(
		testBanner,
		"-ERR address not found: bad alias",
		"+OK",
	)

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			dials.Add(1)
			return transport, nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	_, err = client.Get(ctx, "Nope", "level", 1)
	var deviceErr *ttp.DeviceError
	require.ErrorAs(t, err, &deviceErr)

	// The device answered, so the session went back to the pool.
	require.NoError(t, client.Toggle(ctx, "Mute1", "mute", 1))
	assert.Equal(t, int32(1), dials.Load())
}

func TestClientTransportFailureRedials(t *testing.T) {
	var dials atomic.Int32

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			n := dials.Add(1)
			if n == 1 {
				// A transport that greets and then dies.
				transport := newFakeTransport(testBanner)
				transport.Close()
				return transport, nil
			}
			return newFakeTransport(testBanner, "+OK"), nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	err = client.Toggle(ctx, "Mute1", "mute", 1)
	require.Error(t, err)

	require.NoError(t, client.Toggle(ctx, "Mute1", "mute", 1))
	assert.Equal(t, int32(2), dials.Load())
}

func TestClientCircuitBreakerOpensOnTransportFailures(t *testing.T) {
	dialErr := errors.New("connection refused")

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			return nil, dialErr
		},
		NewCircuitBreaker: NewCircuitBreakerConfig("device", 1, 0, 0),
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := client.Toggle(ctx, "Mute1", "mute", 1)
		assert.ErrorIs(t, err, dialErr)
	}

	err = client.Toggle(ctx, "Mute1", "mute", 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestClientCircuitBreakerIgnoresDeviceErrors(t *testing.T) {
	transport := newFakeTransport(
		testBanner,
		"-ERR address not found: 1",
		"-ERR address not found: 2",
		"-ERR address not found: 3",
		"-ERR address not found: 4",
		"+OK",
	)

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			return transport, nil
		},
		NewCircuitBreaker: NewCircuitBreakerConfig("device", 1, 0, 0),
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	var deviceErr *ttp.DeviceError
	for i := 0; i < 4; i++ {
		err := client.Toggle(ctx, "Mute1", "mute", 1)
		assert.ErrorAs(t, err, &deviceErr)
	}

	// The breaker stayed closed: -ERR means the path is healthy.
	require.NoError(t, client.Toggle(ctx, "Mute1", "mute", 1))
}

func TestClientListAliases(t *testing.T) {
	transport := newFakeTransport(
		testBanner,
		"SESSION get aliases",
		`+OK "list":["Level1" "Mute1"]`,
	)

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			return transport, nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	aliases, err := client.ListAliases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Level1", "Mute1"}, aliases)
}

func TestClientSetEncodesValue(t *testing.T) {
	transport := newFakeTransport(testBanner, "+OK", "+OK", "+OK")

	client, err := NewClient(ClientConfig{
		Dial: func(ctx context.Context) (Transport, error) {
			return transport, nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "Level1", "level", ttp.Float(-10), 1))
	require.NoError(t, client.Increment(ctx, "Level1", "level", ttp.Float(1.5), 1))
	require.NoError(t, client.Decrement(ctx, "Level1", "level", ttp.Int(3), 1))

	assert.Equal(t, []string{
		"Level1 set level 1 -10.0\n",
		"Level1 increment level 1 1.5\n",
		"Level1 decrement level 1 3\n",
	}, transport.sentLines())
}
