package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_AdmitsFirstRequest(t *testing.T) {
	g := NewGuard(2 * time.Second)

	done, admitted := g.Begin("getOrder:1:501")

	require.True(t, admitted)
	require.NotNil(t, done)
	done()
}

func TestGuard_RejectsInFlight(t *testing.T) {
	g := NewGuard(2 * time.Second)

	done, admitted := g.Begin("getOrder:1:501")
	require.True(t, admitted)

	_, admitted = g.Begin("getOrder:1:501")
	assert.False(t, admitted)

	done()
}

func TestGuard_RejectsWithinWindow(t *testing.T) {
	g := NewGuard(2 * time.Second)

	current := time.Now()
	g.now = func() time.Time { return current }

	done, admitted := g.Begin("getOrder:1:501")
	require.True(t, admitted)
	done()

	// 1s later: still inside the window.
	current = current.Add(1 * time.Second)
	_, admitted = g.Begin("getOrder:1:501")
	assert.False(t, admitted)
}

func TestGuard_AdmitsAfterWindow(t *testing.T) {
	g := NewGuard(2 * time.Second)

	current := time.Now()
	g.now = func() time.Time { return current }

	done, admitted := g.Begin("getOrder:1:501")
	require.True(t, admitted)
	done()

	current = current.Add(2001 * time.Millisecond)
	done, admitted = g.Begin("getOrder:1:501")
	assert.True(t, admitted)
	done()
}

func TestGuard_DistinctKeysIndependent(t *testing.T) {
	g := NewGuard(2 * time.Second)

	done1, admitted := g.Begin("getOrder:1:501")
	require.True(t, admitted)

	done2, admitted := g.Begin("getOrder:1:502")
	assert.True(t, admitted)

	done1()
	done2()
}

func TestGuard_Forget(t *testing.T) {
	g := NewGuard(2 * time.Second)

	done, admitted := g.Begin("getOrder:1:501")
	require.True(t, admitted)
	done()

	g.Forget("getOrder:1:501")

	done, admitted = g.Begin("getOrder:1:501")
	assert.True(t, admitted)
	done()
}

func TestKey_Canonical(t *testing.T) {
	assert.Equal(t, "getOrder:7:501", Key("getOrder", 7, 501))
	assert.Equal(t, "listOrders:7:1:10:PENDING", Key("listOrders", 7, 1, 10, "PENDING"))
}
