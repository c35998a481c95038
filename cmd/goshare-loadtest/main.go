// Command goshare-loadtest measures refresh ledger throughput: it seeds
// refresh tokens into a Redis ledger, then runs a validate phase and a
// rotate phase (revoke the current token, record its successor) with
// concurrent workers and prints latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goShare/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type tokenState struct {
	userID string
	token  string
	mu     sync.Mutex
}

func main() {
	var (
		tokens      = flag.Int("tokens", 100000, "number of refresh tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (validate + rotate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "grt", "ledger key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
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

	ledger := session.NewRedisLedger(client, *prefix)

	states := make([]tokenState, *tokens)
	fmt.Printf("seeding %d tokens...\n", *tokens)
	startSeed := time.Now()
	for i := range states {
		states[i].userID = fmt.Sprintf("user-%d", i%1000)
		states[i].token = tokenFor(i, 0)
		if err := ledger.Record(ctx, states[i].token, states[i].userID, 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "record failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, i int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		token := st.token
		st.mu.Unlock()
		ok, err := ledger.IsValid(ctx, token, st.userID)
		if err == nil && !ok {
			err = errNotValid
		}
		return err
	})

	rotateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, i int) error {
		idx := r.Intn(len(states))
		st := &states[idx]
		st.mu.Lock()
		defer st.mu.Unlock()

		removed, err := ledger.Revoke(ctx, st.token)
		if err != nil {
			return err
		}
		if !removed {
			return errNotValid
		}
		next := tokenFor(idx, i+1)
		if err := ledger.Record(ctx, next, st.userID, 24*time.Hour); err != nil {
			return err
		}
		st.token = next
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("rotate", rotateStats)
}

// runPhase spreads ops calls of op across concurrency workers and records
// the latency of each call.
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

func tokenFor(i, generation int) string {
	return fmt.Sprintf("rt-%d-%d", i, generation)
}
