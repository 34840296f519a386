package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// chain is one user's live refresh lineage. Its mutex serialises rotations so
// the load test measures the happy path rather than replay revocations.
type chain struct {
	userID string
	pair   goSession.TokenPair
	mu     sync.Mutex
}

func newLoadtestCommand() *cobra.Command {
	var (
		users       int
		concurrency int
		ops         int
		redisAddr   string
		prefix      string
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure authenticate and refresh throughput against a Redis user store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if users <= 0 || concurrency <= 0 || ops <= 0 {
				return fmt.Errorf("users, concurrency and ops must be > 0")
			}
			ctx := cmd.Context()

			addr := redisAddr
			if addr == "" {
				addr = os.Getenv("REDIS_ADDR")
			}
			var client *redis.Client
			if addr == "" {
				mr, err := miniredis.Run()
				if err != nil {
					return fmt.Errorf("start miniredis: %w", err)
				}
				defer mr.Close()
				addr = mr.Addr()
				fmt.Printf("using miniredis at %s\n", addr)
			} else {
				fmt.Printf("using redis at %s\n", addr)
			}
			client = redis.NewClient(&redis.Options{Addr: addr})
			defer func() { _ = client.Close() }()

			engine, err := loadtestEngine(redisstore.New(client, prefix))
			if err != nil {
				return err
			}
			defer engine.Close()

			chains := make([]chain, users)
			fmt.Printf("registering %d users...\n", users)
			startSeed := time.Now()
			for i := range chains {
				pair, err := engine.Register(ctx, goSession.Profile{
					Email:    fmt.Sprintf("load-%d@example.com", i),
					Password: "loadtest-password",
				})
				if err != nil {
					return fmt.Errorf("register user %d: %w", i, err)
				}
				id, err := engine.Authenticate(ctx, pair.AccessToken)
				if err != nil {
					return fmt.Errorf("authenticate user %d: %w", i, err)
				}
				chains[i] = chain{userID: id.UserID, pair: pair}
			}
			fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

			authStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
				c := &chains[r.Intn(len(chains))]
				c.mu.Lock()
				token := c.pair.AccessToken
				c.mu.Unlock()
				_, err := engine.Authenticate(ctx, token)
				return err
			})
			refreshStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
				c := &chains[r.Intn(len(chains))]
				c.mu.Lock()
				defer c.mu.Unlock()
				next, err := engine.Refresh(ctx, c.userID, c.pair.RefreshToken)
				if err != nil {
					return err
				}
				c.pair = next
				return nil
			})

			fmt.Println("---- results ----")
			printStats("authenticate", authStats)
			printStats("refresh", refreshStats)
			return nil
		},
	}

	cmd.Flags().IntVar(&users, "users", 1000, "Number of users to register")
	cmd.Flags().IntVar(&concurrency, "concurrency", 64, "Number of concurrent workers")
	cmd.Flags().IntVar(&ops, "ops", 20000, "Operations per phase")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address; REDIS_ADDR or an embedded miniredis when empty")
	cmd.Flags().StringVar(&prefix, "prefix", "gsload", "Key prefix for the user store")
	return cmd
}

// loadtestEngine uses bcrypt at its minimum accepted cost so seeding is not
// dominated by password hashing.
func loadtestEngine(s *redisstore.Store) (*goSession.Engine, error) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789abcdef")
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 10
	cfg.Metrics.Enabled = true
	return goSession.New().WithConfig(cfg).WithStore(s).Build()
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
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
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
