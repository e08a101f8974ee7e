package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

// DemoCommand returns the demo command. It drives the guarded map
// through enough writes to exercise eviction and prints the resulting
// accounting, which makes it a quick smoke test for a configuration.
func DemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Exercise the guarded map under the configured budget",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "entries",
				Usage: "How many entries to insert",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "value-size",
				Usage: "Payload size per entry in bytes",
				Value: 1024,
			},
		},
		Action: demoRun,
	}
}

func demoRun(c *cli.Context) error {
	env := GetEnv(c)

	ch, err := buildChannel(env)
	if err != nil {
		return err
	}
	m, err := buildMap(env, ch)
	if err != nil {
		return err
	}

	entries := c.Int("entries")
	valueSize := c.Int("value-size")
	payload := strings.Repeat("x", valueSize)

	rejected := 0
	for i := 0; i < entries; i++ {
		if err := m.Set(fmt.Sprintf("key-%03d", i), payload); err != nil {
			rejected++
			env.Log.Warn("write rejected", "index", i, "error", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "inserted:  %d\n", entries-rejected)
	fmt.Fprintf(c.App.Writer, "rejected:  %d\n", rejected)
	fmt.Fprintf(c.App.Writer, "retained:  %d\n", m.Len())
	fmt.Fprintf(c.App.Writer, "used:      %d bytes\n", m.Used())
	fmt.Fprintf(c.App.Writer, "ceiling:   %d bytes\n", m.Ceiling())
	fmt.Fprintf(c.App.Writer, "frag_rate: %.1f%%\n", m.FragmentationRate())
	fmt.Fprintf(c.App.Writer, "defrag:    %v\n", m.NeedsDefragmentation())

	if keys := m.Keys(); len(keys) > 0 {
		fmt.Fprintf(c.App.Writer, "oldest:    %s\n", keys[0])
		fmt.Fprintf(c.App.Writer, "newest:    %s\n", keys[len(keys)-1])
	}
	return nil
}
