// Command eduauth-loadtest measures the Redis hot paths under concurrency:
// identity cache lookups, refresh rotation and rate-limit consumption.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/eduAuth/identity"
	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const refreshTTL = 24 * time.Hour

type subjectState struct {
	subject string
	token   string
	mu      sync.Mutex
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of subjects to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := refresh.NewStore(client, refresh.StoreConfig{Prefix: "loadtest:refresh"})
	cache := identity.NewCache(client, identity.LoaderFunc(func(_ context.Context, subject string) (identity.Record, error) {
		return identity.Record{Subject: subject, Email: subject + "@example.com", Role: "USER", Version: 1}, nil
	}), identity.Config{Prefix: "loadtest:identity"}, nil)
	limiter := rate.New(client, rate.Config{}, nil)

	states := make([]subjectState, *subjects)
	fmt.Printf("seeding %d subjects...\n", *subjects)
	startSeed := time.Now()
	for i := range states {
		subject := "subject-" + strconv.Itoa(i)
		token, err := refresh.NewToken(subject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token failed: %v\n", err)
			os.Exit(1)
		}
		if err := store.Save(ctx, subject, refresh.Digest(token), refreshTTL); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = subjectState{subject: subject, token: token}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	policy := rate.Policy{Name: "loadtest", Limit: *ops + 1, Window: time.Minute}

	lookupStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := cache.Lookup(ctx, states[r.Intn(len(states))].subject)
		return err
	})
	rotateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		return rotate(ctx, store, &states[r.Intn(len(states))])
	})
	rateStats := runPhase(*ops, *concurrency, 4093, func(r *rand.Rand, _ int) error {
		_, err := limiter.Check(ctx, policy, states[r.Intn(len(states))].subject)
		return err
	})

	fmt.Println("---- results ----")
	printStats("identity lookup", lookupStats)
	printStats("refresh rotate", rotateStats)
	printStats("rate consume", rateStats)
}

func rotate(ctx context.Context, store *refresh.Store, state *subjectState) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	next, err := refresh.NewToken(state.subject)
	if err != nil {
		return err
	}
	presented := refresh.Digest(state.token)
	if err := store.Check(ctx, state.subject, presented); err != nil {
		return err
	}
	if err := store.Rotate(ctx, state.subject, presented, refresh.Digest(next), refreshTTL); err != nil {
		return err
	}
	state.token = next
	return nil
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
