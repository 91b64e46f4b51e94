package main

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/randutil"
)

// DrawsCmd runs the winner draw many times and prints how often each
// candidate wins, as a quick fairness check.
type DrawsCmd struct {
	Hands    int    `kong:"default='5',help='Pool size per trial'"`
	Winners  int    `kong:"default='1',help='Winners per trial'"`
	Trials   int    `kong:"default='100000',help='Number of trials'"`
	Parallel int    `kong:"default='0',help='Worker count (0 = GOMAXPROCS)'"`
	Seed     *int64 `kong:"help='Top-level seed (default: current time)'"`
}

func (c *DrawsCmd) Run() error {
	if c.Hands < 1 || c.Winners < 1 || c.Trials < 1 {
		return fmt.Errorf("hands, winners and trials must all be positive")
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	workers := c.Parallel
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	pool := make([]int64, c.Hands)
	for i := range pool {
		pool[i] = int64(i + 1)
	}

	var mu sync.Mutex
	counts := make(map[int64]int, c.Hands)

	// Each worker draws from its own derived stream so runs are
	// reproducible regardless of worker count or scheduling.
	var g errgroup.Group
	g.SetLimit(workers)
	perWorker := (c.Trials + workers - 1) / workers
	for w := 0; w < workers; w++ {
		trials := min(perWorker, c.Trials-w*perWorker)
		if trials <= 0 {
			break
		}
		stream := int64(w)
		g.Go(func() error {
			rng := randutil.Derive(seed, stream)
			local := make(map[int64]int, len(pool))
			for i := 0; i < trials; i++ {
				for _, id := range game.DrawWinners(rng, pool, c.Winners) {
					local[id]++
				}
			}
			mu.Lock()
			for id, n := range local {
				counts[id] += n
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	expected := float64(c.Trials*c.Winners) / float64(c.Hands)
	fmt.Printf("seed=%d trials=%d hands=%d winners=%d expected=%.1f\n",
		seed, c.Trials, c.Hands, c.Winners, expected)
	for _, id := range ids {
		n := counts[id]
		fmt.Printf("  hand %2d  %8d  (%+.2f%%)\n", id, n, 100*(float64(n)-expected)/expected)
	}
	return nil
}
