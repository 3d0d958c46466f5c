package service

import (
	"fmt"
	"testing"
	"time"

	"watopic/internal/constants"

	"github.com/stretchr/testify/assert"
)

func TestDeduperSuppressesWithinWindow(t *testing.T) {
	d := NewDeduper(30 * time.Second)
	current := time.Now()
	d.now = func() time.Time { return current }

	assert.True(t, d.ShouldNotify("123@c.us:abc"))
	assert.False(t, d.ShouldNotify("123@c.us:abc"))

	current = current.Add(10 * time.Second)
	assert.False(t, d.ShouldNotify("123@c.us:abc"))
}

func TestDeduperNotifiesAgainAfterWindow(t *testing.T) {
	d := NewDeduper(30 * time.Second)
	current := time.Now()
	d.now = func() time.Time { return current }

	assert.True(t, d.ShouldNotify("123@c.us:abc"))

	current = current.Add(31 * time.Second)
	assert.True(t, d.ShouldNotify("123@c.us:abc"))
	assert.False(t, d.ShouldNotify("123@c.us:abc"))
}

func TestDeduperDistinctKeysIndependent(t *testing.T) {
	d := NewDeduper(30 * time.Second)

	assert.True(t, d.ShouldNotify("123@c.us:call-1"))
	assert.True(t, d.ShouldNotify("123@c.us:call-2"))
	assert.True(t, d.ShouldNotify("456@c.us:call-1"))
}

func TestDeduperSweepsExpiredEntries(t *testing.T) {
	d := NewDeduper(30 * time.Second)
	current := time.Now()
	d.now = func() time.Time { return current }

	for i := 0; i < constants.DedupSweepThreshold; i++ {
		d.ShouldNotify(fmt.Sprintf("key-%d", i))
	}
	assert.Equal(t, constants.DedupSweepThreshold, d.Len())

	// All previous entries expire; the next insert crosses the threshold
	// and triggers a sweep.
	current = current.Add(time.Minute)
	d.ShouldNotify("fresh-key")
	assert.Equal(t, 1, d.Len())
}
