package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

// entryFile is the on-disk exchange format for snapshot save and load:
// a JSON array of key-value pairs in map order.
type entryFile []struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SnapshotCommand returns the snapshot subcommand group.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Manage archived map snapshots",
		Subcommands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Load entries from a JSON file and archive a snapshot",
				ArgsUsage: "FILE",
				Action:    snapshotSave,
			},
			{
				Name:      "load",
				Usage:     "Restore a snapshot and print its entries as JSON",
				ArgsUsage: "[SNAPSHOT_ID]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "latest",
						Usage: "Restore the most recent snapshot",
					},
				},
				Action: snapshotLoad,
			},
			{
				Name:   "list",
				Usage:  "List archived snapshots, newest first",
				Action: snapshotList,
			},
			{
				Name:   "prune",
				Usage:  "Delete snapshots beyond the retention count",
				Action: snapshotPrune,
			},
			{
				Name:      "delete",
				Usage:     "Delete one snapshot",
				ArgsUsage: "SNAPSHOT_ID",
				Action:    snapshotDelete,
			},
		},
	}
}

func snapshotSave(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("snapshot save: exactly one input file required")
	}
	env := GetEnv(c)

	raw, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("read entries: %w", err)
	}
	var entries entryFile
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse entries: %w", err)
	}

	ch, err := buildChannel(env)
	if err != nil {
		return err
	}
	m, err := buildMap(env, ch)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := m.Set(e.Key, e.Value); err != nil {
			return fmt.Errorf("insert %q: %w", e.Key, err)
		}
	}

	var buf bytes.Buffer
	if err := m.SerializeTo(&buf); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	archive, err := openArchive(env)
	if err != nil {
		return err
	}
	defer archive.Close()

	id, err := archive.Save(buf.Bytes())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s\n", id)
	return nil
}

func snapshotLoad(c *cli.Context) error {
	env := GetEnv(c)

	archive, err := openArchive(env)
	if err != nil {
		return err
	}
	defer archive.Close()

	var data []byte
	switch {
	case c.Bool("latest"):
		_, data, err = archive.Latest()
	case c.NArg() == 1:
		data, err = archive.Load(c.Args().First())
	default:
		return fmt.Errorf("snapshot load: give a SNAPSHOT_ID or --latest")
	}
	if err != nil {
		return err
	}

	ch, err := buildChannel(env)
	if err != nil {
		return err
	}
	m, err := buildMap(env, ch)
	if err != nil {
		return err
	}
	if err := m.DeserializeFrom(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}

	out := make(entryFile, 0, m.Len())
	for _, e := range m.Snapshot() {
		out = append(out, struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}{Key: e.Key, Value: e.Value})
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func snapshotList(c *cli.Context) error {
	env := GetEnv(c)

	archive, err := openArchive(env)
	if err != nil {
		return err
	}
	defer archive.Close()

	records, err := archive.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSIZE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\n",
			rec.ID, rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), rec.Size)
	}
	return w.Flush()
}

func snapshotPrune(c *cli.Context) error {
	env := GetEnv(c)

	archive, err := openArchive(env)
	if err != nil {
		return err
	}
	defer archive.Close()

	deleted, err := archive.Prune()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pruned %d snapshot(s), keeping %d\n",
		deleted, env.Cfg.Storage.SnapshotKeep)
	return nil
}

func snapshotDelete(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("snapshot delete: exactly one SNAPSHOT_ID required")
	}
	env := GetEnv(c)

	archive, err := openArchive(env)
	if err != nil {
		return err
	}
	defer archive.Close()

	if err := archive.Delete(c.Args().First()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %s\n", c.Args().First())
	return nil
}
