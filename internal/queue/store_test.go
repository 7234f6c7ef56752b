package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func TestEnqueueAndClaim(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "lesson-1", "uploads/lesson-1/raw.mp4")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != queue.StatusPending || job.Attempt != 0 {
		t.Fatalf("unexpected job: %+v", job)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claimed = %+v, want job %d", claimed, job.ID)
	}
	if claimed.Status != queue.StatusRunning || claimed.Attempt != 1 {
		t.Fatalf("claim did not transition: %+v", claimed)
	}

	// Nothing else is eligible.
	next, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("second ClaimNext: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no eligible job, got %+v", next)
	}
}

func TestEnqueueDeduplicatesActiveLesson(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("duplicate Enqueue: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate confirmation created a second job: %d vs %d", second.ID, first.ID)
	}

	// A completed job no longer blocks a re-enqueue.
	if err := store.MarkCompleted(ctx, first.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	third, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("expected a fresh job after completion")
	}
}

func TestRescheduleDelaysEligibility(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := store.Reschedule(ctx, job.ID, time.Hour, "conversion failed: transient"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed != nil {
		t.Fatalf("job claimed before backoff elapsed: %+v", claimed)
	}

	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusPending || stored.Attempt != 1 {
		t.Fatalf("unexpected rescheduled job: %+v", stored)
	}
	if stored.ErrorMessage == "" {
		t.Fatalf("last attempt error should be recorded")
	}
	if until := time.Until(stored.NextRunAt); until < 55*time.Minute {
		t.Fatalf("next_run_at too soon: %v", until)
	}
}

func TestRetryFailedResetsAttempts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
		if err := store.Reschedule(ctx, job.ID, 0, "boom"); err != nil {
			t.Fatalf("Reschedule: %v", err)
		}
	}
	if err := store.MarkFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	retried, err := store.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}
	stored, _ := store.GetByID(ctx, job.ID)
	if stored.Status != queue.StatusPending || stored.Attempt != 0 || stored.ErrorMessage != "" {
		t.Fatalf("retry did not reset job: %+v", stored)
	}
}

func TestResetStuckRunning(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, "lesson-1", "uploads/raw.mp4"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	reset, err := store.ResetStuckRunning(ctx)
	if err != nil {
		t.Fatalf("ResetStuckRunning: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("reclaimed job should be claimable: %v %v", claimed, err)
	}
	if claimed.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", claimed.Attempt)
	}
}

func TestConcurrentClaimsHandEachJobOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	const jobs = 8
	for i := 0; i < jobs; i++ {
		if _, err := store.Enqueue(ctx, "lesson-"+string(rune('a'+i)), "uploads/raw.mp4"); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	var mu sync.Mutex
	claimedIDs := make(map[int64]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := store.ClaimNext(ctx)
				if err != nil {
					t.Errorf("ClaimNext: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				claimedIDs[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimedIDs) != jobs {
		t.Fatalf("claimed %d distinct jobs, want %d", len(claimedIDs), jobs)
	}
	for id, count := range claimedIDs {
		if count != 1 {
			t.Fatalf("job %d claimed %d times", id, count)
		}
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "lesson-a", "uploads/a.mp4")
	if _, err := store.Enqueue(ctx, "lesson-b", "uploads/b.mp4"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.MarkFailed(ctx, a.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}

	cleared, err := store.ClearFailed(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearFailed = %d, %v", cleared, err)
	}
}
