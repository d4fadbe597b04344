package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ConcurrencyConfig defines job concurrency limits. Jobs run
// concurrently across clients; within one client the per-client limit
// keeps a noisy tenant from starving the pool.
type ConcurrencyConfig struct {
	MaxConcurrentJobs int           // global slots
	MaxPerClient      int           // slots per client
	JobTimeout        time.Duration // max duration of one job
	QueueTimeout      time.Duration // max wait for a slot
}

// DefaultConcurrencyConfig returns production-ready defaults
func DefaultConcurrencyConfig() *ConcurrencyConfig {
	return &ConcurrencyConfig{
		MaxConcurrentJobs: 12,
		MaxPerClient:      2,
		JobTimeout:        60 * time.Minute,
		QueueTimeout:      5 * time.Minute,
	}
}

// ClientSemaphore enforces the global and per-client job limits
type ClientSemaphore struct {
	mu         sync.RWMutex
	globalSem  chan struct{}
	clientSems map[string]chan struct{}
	active     map[string]int
	config     *ConcurrencyConfig
}

// NewClientSemaphore creates a semaphore manager
func NewClientSemaphore(config *ConcurrencyConfig) *ClientSemaphore {
	if config == nil {
		config = DefaultConcurrencyConfig()
	}
	return &ClientSemaphore{
		globalSem:  make(chan struct{}, config.MaxConcurrentJobs),
		clientSems: make(map[string]chan struct{}),
		active:     make(map[string]int),
		config:     config,
	}
}

func (s *ClientSemaphore) clientSem(clientID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sem, ok := s.clientSems[clientID]; ok {
		return sem
	}
	sem := make(chan struct{}, s.config.MaxPerClient)
	s.clientSems[clientID] = sem
	return sem
}

// Acquire blocks until both a global and a per-client slot are free,
// bounded by the queue timeout. The returned release function must be
// called exactly once.
func (s *ClientSemaphore) Acquire(ctx context.Context, clientID string) (func(), error) {
	queueCtx, cancel := context.WithTimeout(ctx, s.config.QueueTimeout)
	defer cancel()

	select {
	case s.globalSem <- struct{}{}:
	case <-queueCtx.Done():
		return nil, fmt.Errorf("timeout waiting for a worker slot")
	}

	clientSem := s.clientSem(clientID)
	select {
	case clientSem <- struct{}{}:
	case <-queueCtx.Done():
		<-s.globalSem
		return nil, fmt.Errorf("timeout waiting for client slot: client=%s", clientID)
	}

	s.mu.Lock()
	s.active[clientID]++
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			s.active[clientID]--
			s.mu.Unlock()
			<-clientSem
			<-s.globalSem
		})
	}
	return release, nil
}

// ActiveJobs returns the active job count for one client
func (s *ClientSemaphore) ActiveJobs(clientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[clientID]
}

// Stats reports the semaphore state for the admin API
func (s *ClientSemaphore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byClient := make(map[string]int, len(s.active))
	total := 0
	for clientID, count := range s.active {
		if count > 0 {
			byClient[clientID] = count
			total += count
		}
	}
	return map[string]interface{}{
		"maxConcurrentJobs": s.config.MaxConcurrentJobs,
		"maxPerClient":      s.config.MaxPerClient,
		"activeTotal":       total,
		"activeByClient":    byClient,
	}
}
