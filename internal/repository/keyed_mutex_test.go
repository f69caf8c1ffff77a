package repository_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/guild-ticket-bot/internal/repository"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := repository.NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("g1:u1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, counter)
}

func TestKeyedMutexKeysAreIndependent(t *testing.T) {
	km := repository.NewKeyedMutex()

	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	// key "b" must not wait on key "a"
	<-done
	unlockA()

	// "a" is reacquirable after unlock
	unlock := km.Lock("a")
	unlock()
}
