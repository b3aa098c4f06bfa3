package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/delaneyj/storebind/batch"
	"github.com/delaneyj/storebind/bind"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/store"
	"github.com/delaneyj/storebind/subscription"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

var (
	ww      = []int{1, 10, 100, 1_000}
	hh      = []int{1, 10, 100}
	readers = []int{10, 100, 1_000}
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark notification fan-out and selector memoization",
		Commands: []*cli.Command{
			{
				Name:  "fanout",
				Usage: "Time one dispatch through trees of subscription nodes",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  iterationsKey,
						Usage: "Dispatches per tree",
						Value: 100,
					},
				},
				Action: benchFanout,
			},
			{
				Name:  "selectors",
				Usage: "Count renders and selector runs of mounted readers",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  iterationsKey,
						Usage: "Dispatches per configuration",
						Value: 1_000,
					},
				},
				Action: benchSelectors,
			},
		},
	}
}

func add(n, delta int) int {
	return n + delta
}

// fanoutTree hangs w chains of h nodes off a root node and puts one
// subscriber at the end of each chain.
func fanoutTree(st subscription.Store, w, h int, onNotify func()) *subscription.Node {
	root := subscription.New(st, nil)
	for i := 0; i < w; i++ {
		node := root
		for j := 1; j < h; j++ {
			node = subscription.New(st, node)
		}
		node.AddSubscriber(onNotify)
	}
	return root
}

func benchFanout(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Uint(iterationsKey))
	log.Printf("Fan-out benchmark, %d dispatches per tree", iters)

	tbl := table.NewWriter()
	tbl.SetTitle("Subscription fan-out")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"tree", "notified", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			st := store.New(add, 0)
			notified := 0
			root := fanoutTree(st, w, h, func() { notified++ })

			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			for i := 0; i < iters; i++ {
				start := time.Now()
				st.Dispatch(1)
				tach.AddTime(time.Since(start))
			}
			root.StopListening()

			if notified != w*iters {
				return fmt.Errorf("fan-out %d * %d notified %d subscribers, want %d", w, h, notified, w*iters)
			}

			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("%d * %d", w, h),
				humanize.Comma(int64(notified)),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	tbl.Render()
	return nil
}

type slotsState struct {
	Slots []int
}

type bump struct {
	Slot int
}

func reduceSlots(s *slotsState, b bump) *slotsState {
	next := &slotsState{Slots: make([]int, len(s.Slots))}
	copy(next.Slots, s.Slots)
	next.Slots[b.Slot]++
	return next
}

type selectorStats struct {
	renders      int
	computations int
	duration     time.Duration
}

// runSelectors mounts n readers over a state of slots and bumps one slot per
// dispatch. Every reader recomputes, only the readers of the bumped slot
// render.
func runSelectors(n, slots, dispatches int) (selectorStats, error) {
	var (
		stats    selectorStats
		flushErr error
	)

	reader := render.NewComponent("Slot", func(r *render.Render, props render.Props) ([]render.Element, error) {
		stats.renders++
		slot := props["slot"].(int)
		v, err := bind.UseSelector(r, func(s *slotsState) int {
			stats.computations++
			return s.Slots[slot]
		})
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("%d", v)}, nil
	})

	rt := render.NewRoot(render.Options{
		OnError: func(err error) { flushErr = err },
	})
	batch.Set(rt.Batch)
	defer batch.Set(nil)

	st := store.New(reduceSlots, &slotsState{Slots: make([]int, slots)})
	children := make([]render.Element, n)
	for i := range children {
		children[i] = render.El(reader, render.Props{"slot": i % slots}).WithKey(strconv.Itoa(i))
	}
	if err := rt.Render(bind.Provider[*slotsState, bump](st, children...)); err != nil {
		return stats, err
	}

	stats.renders, stats.computations = 0, 0
	start := time.Now()
	for i := 0; i < dispatches; i++ {
		st.Dispatch(bump{Slot: i % slots})
		if flushErr != nil {
			return stats, flushErr
		}
	}
	stats.duration = time.Since(start)

	return stats, rt.Unmount()
}

func benchSelectors(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Uint(iterationsKey))
	log.Print("Starting selector benchmark, please wait...")
	defer log.Print("Finished selector benchmark")

	const slots = 10

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"readers", "slots", "dispatches", "renders", "computations", "time", "renders/ms"})

	for _, n := range readers {
		log.Printf("Running %d readers", n)
		stats, err := runSelectors(n, slots, iters)
		if err != nil {
			return err
		}

		rate := float64(stats.renders) / (float64(stats.duration) / float64(time.Millisecond))
		tw.Append([]string{
			humanize.Comma(int64(n)),
			fmt.Sprint(slots),
			humanize.Comma(int64(iters)),
			humanize.Comma(int64(stats.renders)),
			humanize.Comma(int64(stats.computations)),
			fmt.Sprint(stats.duration),
			humanize.Comma(int64(rate)),
		})
	}
	tw.Render()
	return nil
}
