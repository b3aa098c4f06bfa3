package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/delaneyj/storebind/batch"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

var errUnknownAction = errors.New("unknown action")

type script struct {
	Initial int      `yaml:"initial"`
	Step    int      `yaml:"step"`
	Actions []action `yaml:"actions"`
}

var defaultScript = script{
	Step: 1,
	Actions: []action{
		{Type: "increment"},
		{Type: "increment"},
		{Type: "step", Amount: 5},
		{Type: "increment"},
		{Type: "touch"},
		{Type: "decrement"},
		{Type: "reset"},
	},
}

func loadScript(path string) (script, error) {
	if path == "" {
		return defaultScript, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return script{}, err
	}

	sc := script{Step: 1}
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return script{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, a := range sc.Actions {
		if !slices.Contains(actionTypes, a.Type) {
			return script{}, fmt.Errorf("%w: %q at step %d", errUnknownAction, a.Type, i+1)
		}
	}
	return sc, nil
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Mount a counter app and replay actions against it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  scriptKey,
				Usage: "YAML file with initial, step and actions",
			},
			&cli.BoolFlag{
				Name:  verboseKey,
				Usage: "Log mounts, unmounts and commits",
			},
			&cli.BoolFlag{
				Name:  dumpKey,
				Usage: "Print the mounted component tree at the end",
			},
		},
		Action: demo,
	}
}

func demo(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	defer func() {
		log.Printf("Demo finished in %v", time.Since(start))
	}()

	sc, err := loadScript(cmd.String(scriptKey))
	if err != nil {
		return err
	}

	var logger *slog.Logger
	if cmd.Bool(verboseKey) {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return runDemo(os.Stdout, sc, logger, cmd.Bool(dumpKey))
}

func runDemo(w io.Writer, sc script, logger *slog.Logger, dump bool) error {
	var flushErr error
	rt := render.NewRoot(render.Options{
		Logger: logger,
		OnError: func(err error) {
			if flushErr == nil {
				flushErr = err
			}
		},
	})
	batch.Set(rt.Batch)
	defer batch.Set(nil)

	st := store.New(reduce, &counterState{Count: sc.Initial, Step: sc.Step})
	c := &controls{}
	if err := rt.Render(counterApp(st, c)); err != nil {
		return err
	}
	fmt.Fprintf(w, "%-12s %s\n", "mount", rt.Output())

	for _, a := range sc.Actions {
		c.run(a)
		if flushErr != nil {
			return fmt.Errorf("%s: %w", a, flushErr)
		}
		fmt.Fprintf(w, "%-12s %s\n", a, rt.Output())
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"component", "depth", "renders", "hooks"})
	for _, info := range rt.Instances() {
		table.Append([]string{
			info.Name,
			fmt.Sprint(info.Depth),
			humanize.Comma(int64(info.Renders)),
			fmt.Sprint(info.Hooks),
		})
	}
	table.Render()

	if dump {
		rt.Dump(w)
	}
	return rt.Unmount()
}
