package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-orchestrator/internal/domain"
)

// QuizStore is the backing store of quiz documents (filesystem, Postgres).
type QuizStore interface {
	LoadQuiz(ctx context.Context, filename string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	SaveQuiz(ctx context.Context, filename string, quiz domain.Quiz) (string, error)
}

// QuizRepository caches loaded quizzes with TTL to avoid repeated store hits.
// Listing and saving always go to the store.
type QuizRepository struct {
	store QuizStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(store QuizStore, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, filename string) (domain.Quiz, error) {
	if quiz, ok := r.cached(filename); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(filename, func() (interface{}, error) {
		if quiz, ok := r.cached(filename); ok {
			return quiz, nil
		}

		quiz, err := r.store.LoadQuiz(ctx, filename)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.cache[filename] = cachedQuiz{quiz: quiz, expiresAt: r.clock().Add(ttl)}
		}
		r.mu.Unlock()
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
	r.mu.Lock()
	delete(r.cache, saved)
	r.mu.Unlock()
	return saved, nil
}

func (r *QuizRepository) cached(filename string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[filename]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

// ttlWithJitter must be called with mu held.
func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
