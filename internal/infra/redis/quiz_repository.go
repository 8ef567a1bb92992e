package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-orchestrator/internal/domain"
)

// QuizStore is the backing store of quiz documents (filesystem, Postgres).
type QuizStore interface {
	LoadQuiz(ctx context.Context, filename string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	SaveQuiz(ctx context.Context, filename string, quiz domain.Quiz) (string, error)
}

// QuizRepository caches quiz documents in Redis and falls back to the store on
// a miss. Documents are stored as JSON: SET quiz:doc:{filename} {json} EX ttl
type QuizRepository struct {
	client redis.UniversalClient
	store  QuizStore
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client redis.UniversalClient, store QuizStore, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, filename string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, filename); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(filename, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, filename); ok {
			return quiz, nil
		}

		quiz, err := r.store.LoadQuiz(ctx, filename)
		if err != nil {
			return domain.Quiz{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(quiz); err == nil {
				_ = r.client.Set(ctx, r.docKey(filename), raw, ttl).Err()
			}
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return r.store.ListQuizzes(ctx)
}

func (r *QuizRepository) SaveQuiz(ctx context.Context, filename string, quiz domain.Quiz) (string, error) {
	saved, err := r.store.SaveQuiz(ctx, filename, quiz)
	if err != nil {
		return "", err
	}
	_ = r.client.Del(ctx, r.docKey(saved)).Err()
	return saved, nil
}

// cached treats redis.Nil, other Redis errors and undecodable documents as misses.
func (r *QuizRepository) cached(ctx context.Context, filename string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.docKey(filename)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) docKey(filename string) string {
	return "quiz:doc:" + filename
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
