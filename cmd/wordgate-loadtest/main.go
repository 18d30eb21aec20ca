// Command wordgate-loadtest drives the engine's three operations against a
// Redis-backed code store and reports throughput and latency percentiles.
// With no -redis-addr it runs fully self-contained on miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wordgate/wordgate"
	"github.com/wordgate/wordgate/store"
)

type codeBook struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBook) Deliver(_ context.Context, email, code string, _ time.Duration) error {
	b.mu.Lock()
	b.codes[email] = code
	b.mu.Unlock()
	return nil
}

func (b *codeBook) code(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[email]
}

func main() {
	var (
		identities  = flag.Int("identities", 20000, "number of identities to run through the flow")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		verifyOps   = flag.Int("verify-ops", 200000, "token verifications in the verify phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "wordgate:", "code store key prefix")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *verifyOps <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and verify-ops must be > 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := wordgate.DefaultConfig()
	cfg.Code.TTL = time.Hour
	cfg.Token.Secret = []byte("loadtest-only-secret-not-for-deploys")

	book := &codeBook{codes: make(map[string]string, *identities)}

	engine, err := wordgate.New().
		WithConfig(cfg).
		WithCodeStore(store.NewRedisCodes(client, *prefix, cfg.RateLimit.Window)).
		WithUserStore(store.NewMemoryUsers()).
		WithDeliverer(book).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	emails := make([]string, *identities)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@load.test", i)
	}

	requestStats := runPhase(*identities, *concurrency, func(i int) error {
		_, err := engine.RequestCode(ctx, emails[i], 0)
		return err
	})

	tokens := make([]string, *identities)
	redeemStats := runPhase(*identities, *concurrency, func(i int) error {
		tok, err := engine.RedeemCode(ctx, emails[i], book.code(emails[i]), true)
		if err == nil {
			tokens[i] = tok
		}
		return err
	})

	verifyStats := runPhase(*verifyOps, *concurrency, func(int) error {
		_, err := engine.VerifyToken(ctx, tokens[rand.Intn(len(tokens))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("request", requestStats)
	printStats("redeem", redeemStats)
	printStats("verify", verifyStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: requested=%d redeemed=%d redeem_failures=%d verified=%d\n",
		snap.Counters[wordgate.MetricCodeRequested],
		snap.Counters[wordgate.MetricRedeemSuccess],
		snap.Counters[wordgate.MetricRedeemFailure],
		snap.Counters[wordgate.MetricTokenVerifySuccess],
	)
}

// runPhase fans ops out across workers, timing each call.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
