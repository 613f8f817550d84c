package library

import (
	"context"
	"sync"
	"time"

	"cuetrainer/logger"
	"cuetrainer/repository"
)

const persistTimeout = 10 * time.Second

type persistJob struct {
	name string
	fn   func(ctx context.Context, repo repository.LibraryRepository) error
	ack  chan struct{}
}

// persister writes changes to the repository in order on a single goroutine.
// Callers never wait for the database.
type persister struct {
	repo repository.LibraryRepository
	jobs chan persistJob
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPersister(repo repository.LibraryRepository) *persister {
	p := &persister{repo: repo, jobs: make(chan persistJob, 256)}
	if repo != nil {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *persister) loop() {
	defer p.wg.Done()
	for job := range p.jobs {
		if job.fn != nil {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			if err := job.fn(ctx, p.repo); err != nil {
				logger.Error("持久化失败", logger.String("op", job.name), logger.ErrorField(err))
			}
			cancel()
		}
		if job.ack != nil {
			close(job.ack)
		}
	}
}

func (p *persister) enqueue(name string, fn func(ctx context.Context, repo repository.LibraryRepository) error) {
	if p.repo == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.jobs <- persistJob{name: name, fn: fn}
}

// flush waits until every job queued so far has been written.
func (p *persister) flush() {
	if p.repo == nil {
		return
	}
	ack := make(chan struct{})
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.jobs <- persistJob{name: "flush", ack: ack}
	p.mu.Unlock()
	<-ack
}

func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
