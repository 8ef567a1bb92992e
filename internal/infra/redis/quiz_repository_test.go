package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	store := &countingStore{
		QuizStore: memory.NewStaticQuizStore(map[string]domain.Quiz{
			"quiz.json": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, store, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz.json")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("expected store called once, got %d", store.loads)
	}
	if !mr.Exists("quiz:doc:quiz.json") {
		t.Fatalf("expected cached document in redis")
	}

	// Second call should hit cache, store not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "quiz.json")
	if store.loads != 1 {
		t.Fatalf("expected cache hit, store loads=%d", store.loads)
	}
	if cached.Title != quiz.Title || len(cached.Questions) != 1 || cached.Questions[0].Correct[0] != "b" {
		t.Fatalf("cached quiz differs: %+v", cached)
	}
}

func TestQuizRepositorySaveGoesToStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := memory.NewStaticQuizStore(map[string]domain.Quiz{"quiz.json": sampleQuiz()})
	repo := NewQuizRepository(newClient(mr), store, time.Minute)

	name, err := repo.SaveQuiz(ctx, "quiz.json", sampleQuiz())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "quiz_1.json" {
		t.Fatalf("expected quiz_1.json, got %s", name)
	}
	list, err := repo.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 quizzes, got %+v", list)
	}
}

type countingStore struct {
	QuizStore
	loads int
}

func (s *countingStore) LoadQuiz(ctx context.Context, filename string) (domain.Quiz, error) {
	s.loads++
	return s.QuizStore.LoadQuiz(ctx, filename)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				Text:    "What is 2 + 2?",
				A:       "3",
				B:       "4",
				C:       "5",
				D:       "22",
				Correct: []string{"b"},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
