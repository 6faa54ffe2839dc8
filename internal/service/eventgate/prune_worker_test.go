package eventgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

var _ domain.ProcessedEventRepository = (*stubPruneRepo)(nil)

func TestPruneWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubPruneRepo{
		deleteResults: []int{2, 2, 1},
	}

	worker := NewPruneWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}

	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}

	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
}

func TestPruneWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &stubPruneRepo{
		deleteErrors: []error{errors.New("boom")},
	}

	worker := NewPruneWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected DeleteExpired error")
	}
	if deleted != 0 {
		t.Fatalf("unexpected deleted total: got=%d want=0", deleted)
	}
}

func TestPruneWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubPruneRepo{
		deleteResults: []int{0, 0, 0},
	}

	worker := NewPruneWorker(
		repo,
		WithInterval(5*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if calls := repo.calls(); calls == 0 {
		t.Fatal("expected prune to be called at least once")
	}
}

type stubPruneRepo struct {
	mu sync.Mutex

	deleteResults []int
	deleteErrors  []error
	callCount     int
}

func (s *stubPruneRepo) Exists(context.Context, string) (bool, error) {
	panic("not implemented")
}

func (s *stubPruneRepo) Create(context.Context, domain.ProcessedEvent) error {
	panic("not implemented")
}

func (s *stubPruneRepo) DeleteOlderThan(_ context.Context, _ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++

	if len(s.deleteErrors) > 0 {
		err := s.deleteErrors[0]
		s.deleteErrors = s.deleteErrors[1:]
		if err != nil {
			return 0, err
		}
	}

	if len(s.deleteResults) == 0 {
		return 0, nil
	}
	result := s.deleteResults[0]
	s.deleteResults = s.deleteResults[1:]
	return result, nil
}

func (s *stubPruneRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
