package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenewEveryKeepsRefreshingUntilStopped(t *testing.T) {
	var renewals atomic.Int32
	stop := renewEvery(5*time.Millisecond, func(context.Context) (bool, error) {
		renewals.Add(1)
		return true, nil
	})

	assert.Eventually(t, func() bool { return renewals.Load() >= 3 }, time.Second, time.Millisecond)
	stop()

	after := renewals.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, after, renewals.Load(), "no refresh after release")
}

func TestRenewEveryStopsWhenLockIsLost(t *testing.T) {
	var renewals atomic.Int32
	stop := renewEvery(5*time.Millisecond, func(context.Context) (bool, error) {
		renewals.Add(1)
		return false, nil
	})
	defer stop()

	assert.Eventually(t, func() bool { return renewals.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, int32(1), renewals.Load())
}

func TestRenewEverySurvivesRefreshErrors(t *testing.T) {
	var renewals atomic.Int32
	stop := renewEvery(5*time.Millisecond, func(context.Context) (bool, error) {
		if renewals.Add(1) == 1 {
			return false, assert.AnError
		}
		return true, nil
	})
	defer stop()

	assert.Eventually(t, func() bool { return renewals.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
	assert.Equal(t, "session:abc:state:release", stateKey("abc", "release"))
	assert.Equal(t, "session:abc:lock", lockKey("abc"))
	assert.Equal(t, "blacklist:session:t1", blacklistKey("t1"))
}
