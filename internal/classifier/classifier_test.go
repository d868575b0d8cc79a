package classifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediabutler/internal/classifier"
	"mediabutler/internal/recovery"
)

func TestLibraryClassifiesNearestTitle(t *testing.T) {
	lib := classifier.NewLibrary([]string{
		"The Walking Dead",
		"Fear the Walking Dead",
		"Breaking Bad",
	}, 2)

	result, err := lib.Classify(context.Background(), []string{"the", "walking", "dead"}, "The.Walking.Dead.S11E24.mkv")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != "THE WALKING DEAD" {
		t.Fatalf("category = %q", result.Category)
	}
	if result.Confidence <= 0.5 {
		t.Fatalf("confidence = %v, want > 0.5", result.Confidence)
	}
	if len(result.Alternatives) == 0 || result.Alternatives[0].Category != "FEAR THE WALKING DEAD" {
		t.Fatalf("alternatives = %v", result.Alternatives)
	}
	if result.Alternatives[0].Confidence > result.Confidence {
		t.Fatal("alternatives must rank below best match")
	}
}

func TestLibraryUnknownOnNoEvidence(t *testing.T) {
	lib := classifier.NewLibrary([]string{"Breaking Bad"}, 3)

	result, err := lib.Classify(context.Background(), []string{"severance"}, "Severance.S01E01.mkv")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != classifier.Unknown || result.Confidence != 0 {
		t.Fatalf("expected UNKNOWN/0, got %q/%v", result.Category, result.Confidence)
	}

	empty := classifier.NewLibrary(nil, 3)
	result, err = empty.Classify(context.Background(), []string{"anything"}, "anything.mkv")
	if err != nil {
		t.Fatalf("Classify empty corpus: %v", err)
	}
	if result.Category != classifier.Unknown {
		t.Fatalf("expected UNKNOWN for empty corpus, got %q", result.Category)
	}
}

func TestLibraryCapsAlternatives(t *testing.T) {
	lib := classifier.NewLibrary([]string{
		"The Wire",
		"The Office",
		"The Crown",
		"The Boys",
	}, 2)

	result, err := lib.Classify(context.Background(), []string{"the"}, "the.mkv")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(result.Alternatives) > 2 {
		t.Fatalf("alternatives not capped: %v", result.Alternatives)
	}
}

func TestLibraryReload(t *testing.T) {
	lib := classifier.NewLibrary(nil, 1)
	lib.Reload([]string{"Severance"})

	result, err := lib.Classify(context.Background(), []string{"severance"}, "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != "SEVERANCE" {
		t.Fatalf("category = %q after reload", result.Category)
	}
}

func TestWithTimeoutPassesFastCalls(t *testing.T) {
	inner := classifier.Static{Result: classifier.Result{Category: "FRIENDS", Confidence: 0.9}}
	wrapped := classifier.WithTimeout(inner, 500*time.Millisecond)

	result, err := wrapped.Classify(context.Background(), []string{"friends"}, "friends.mkv")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != "FRIENDS" {
		t.Fatalf("category = %q", result.Category)
	}
}

func TestWithTimeoutConvertsOverrun(t *testing.T) {
	slow := classifier.Func(func(ctx context.Context, _ []string, _ string) (classifier.Result, error) {
		select {
		case <-time.After(2 * time.Second):
			return classifier.Result{Category: "LATE"}, nil
		case <-ctx.Done():
			return classifier.Result{}, ctx.Err()
		}
	})
	wrapped := classifier.WithTimeout(slow, 20*time.Millisecond)

	_, err := wrapped.Classify(context.Background(), nil, "slow.mkv")
	if !errors.Is(err, recovery.ErrClassifierTimeout) {
		t.Fatalf("expected classifier timeout, got %v", err)
	}
}

func TestWithTimeoutHonorsCallerCancel(t *testing.T) {
	blocked := classifier.Func(func(ctx context.Context, _ []string, _ string) (classifier.Result, error) {
		<-ctx.Done()
		return classifier.Result{}, ctx.Err()
	})
	wrapped := classifier.WithTimeout(blocked, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := wrapped.Classify(ctx, nil, "cancelled.mkv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
