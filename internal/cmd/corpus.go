package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VerteraIO/agentrouter/internal/controlplane/features"
	"github.com/VerteraIO/agentrouter/internal/corpus"
)

type corpusOptions struct {
	samples  int
	seed     uint64
	profiles string
	out      string
	manifest string
}

func newCorpusCommand() *cobra.Command {
	o := &corpusOptions{}
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Generate a synthetic training corpus",
		Long: `Simulate task/agent pairings and write them as CSV for training a
duration model, one row per pairing with the feature columns followed by
duration_ms.

Examples:
  # 5000 rows with the built-in agent profiles
  agentrouter corpus

  # Reproducible corpus from custom profiles, plus the feature manifest
  agentrouter corpus --seed 42 --profiles agents.yaml \
    --out data/training.csv --manifest data/features.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				o.seed = uint64(time.Now().UnixNano())
			}
			return runCorpus(cmd, o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.samples, "samples", corpus.DefaultSamples, "number of rows to generate")
	f.Uint64Var(&o.seed, "seed", 0, "random seed (default: time based)")
	f.StringVar(&o.profiles, "profiles", "", "YAML file of agent profiles (default: built-in agents)")
	f.StringVar(&o.out, "out", "training_data.csv", "CSV output path")
	f.StringVar(&o.manifest, "manifest", "", "also write the feature manifest to this path")
	return cmd
}

func runCorpus(cmd *cobra.Command, o *corpusOptions) error {
	if o.samples < 0 {
		return fmt.Errorf("--samples must not be negative")
	}
	profiles := corpus.DefaultProfiles()
	if o.profiles != "" {
		var err error
		if profiles, err = corpus.LoadProfiles(o.profiles); err != nil {
			return err
		}
	}
	gen, err := corpus.NewGenerator(profiles, o.seed)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := writeFile(o.out, func(w *bufio.Writer) error { return gen.WriteCSV(w, o.samples) }); err != nil {
		return err
	}
	if o.manifest != "" {
		if err := writeFile(o.manifest, func(w *bufio.Writer) error { return features.WriteManifest(w, gen.Manifest()) }); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d samples to %s in %s (seed %d)\n", o.samples, o.out, time.Since(start).Round(time.Millisecond), o.seed)
	return nil
}

func writeFile(path string, write func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
