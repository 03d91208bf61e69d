package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/memstore"
	"github.com/Br3achBl0ckers/authcore/password"
)

const loadPassword = "L0ad$Password"

type sessionState struct {
	email   string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		loginOps    = flag.Int("login-ops", 500, "operations for the login phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2id memory in KiB for seeded hashes")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *loginOps <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops and login-ops must be > 0")
		os.Exit(2)
	}

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

	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret")
	cfg.JWT.ResetSecret = []byte("loadtest-reset-secret")
	cfg.JWT.VerifySecret = []byte("loadtest-verify-secret")
	cfg.FrontendURL = "http://localhost:3000"
	cfg.Password.Memory = uint32(*argonMemory)
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	store := memstore.NewAccounts()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(store).
		WithNotifier(authcore.NotifierFunc(func(context.Context, authcore.Message) error { return nil })).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher init failed: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}

	ctx := authcore.WithClientIP(context.Background(), "127.0.0.1")
	states := make([]sessionState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		email := fmt.Sprintf("load-%d@example.com", i)
		now := time.Now()
		if err := store.Create(ctx, &authcore.Account{
			ID:              uuid.NewString(),
			Name:            "Load User",
			Email:           email,
			PasswordHash:    hash,
			Role:            authcore.RoleStudent,
			IsEmailVerified: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		sess, err := engine.Login(ctx, email, loadPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{email: email, access: sess.AccessToken, refresh: sess.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = sess.AccessToken, sess.RefreshToken
		return nil
	})
	loginStats := runPhase(*loginOps, *concurrency, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, err := engine.Login(ctx, s.email, loadPassword)
		if err != nil {
			return err
		}
		s.access, s.refresh = sess.AccessToken, sess.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	printStats("login", loginStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: refresh_success=%d refresh_race_lost=%d login_success=%d\n",
		snap.Counters[authcore.MetricRefreshSuccess],
		snap.Counters[authcore.MetricRefreshRaceLost],
		snap.Counters[authcore.MetricLoginSuccess],
	)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
