package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/session"
	"github.com/MeKo-Tech/masklab/internal/storage"
	"github.com/MeKo-Tech/masklab/internal/worker"
)

var replayCmd = &cobra.Command{
	Use:   "replay [image]",
	Short: "Replay a saved algorithm stack onto a layer and save the result",
	Long: `Replay re-runs a recorded algorithm pipeline against an image layer.
By default the layer's stored settings are used; --settings replays a blob
from a file instead. Algorithms without an available implementation are
skipped; the remaining steps still apply in order.

With --all, every annotatable image in the directory is replayed across all
configured layers in parallel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("layer", "l", "default", "Layer to replay onto")
	replayCmd.Flags().String("settings", "", "Settings blob file (default: the layer's stored settings)")
	replayCmd.Flags().Bool("all", false, "Replay every image in the directory across all configured layers")
	replayCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers for --all (default: number of CPUs)")
	replayCmd.Flags().Bool("progress", true, "Show a progress bar during --all")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"replay.layer", "layer"},
		{"replay.settings", "settings"},
		{"replay.all", "all"},
		{"replay.workers", "workers"},
		{"replay.progress", "progress"},
	}
	for _, b := range bindFlags {
		if err := viper.BindPFlag(b.key, replayCmd.Flags().Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	if viper.GetBool("replay.all") {
		return runReplayAll(cmd)
	}
	if len(args) != 1 {
		return fmt.Errorf("an image argument is required unless --all is set")
	}
	imageName := args[0]
	layer := viper.GetString("replay.layer")
	settingsFile := viper.GetString("replay.settings")

	dir, backend, err := annotationDir()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	sess := session.New(ctx, session.Config{
		Backend: backend,
		Dir:     dir,
		Layers:  configuredLayers(),
	})
	if err := sess.OpenImage(ctx, imageName, layer); err != nil {
		return err
	}

	var blob string
	if settingsFile != "" {
		data, err := os.ReadFile(settingsFile)
		if err != nil {
			return fmt.Errorf("read settings file: %w", err)
		}
		blob = string(data)
	} else {
		blob, err = sess.LoadSettings(ctx)
		if err != nil {
			return err
		}
	}
	if blob == "" {
		return fmt.Errorf("no settings to replay for %s layer %s", imageName, layer)
	}

	if err := sess.ReplaySettings(ctx, blob); err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("replayed settings onto %s layer %s\n", imageName, layer)
	return nil
}

// replayRunner replays one (image, layer) per call; every call builds its own
// session so workers never share editor state.
type replayRunner struct {
	backend storage.Backend
	dir     string
	layers  []session.Layer
}

func (r replayRunner) Run(ctx context.Context, image, layer string) error {
	sess := session.New(ctx, session.Config{Backend: r.backend, Dir: r.dir, Layers: r.layers})
	if err := sess.OpenImage(ctx, image, layer); err != nil {
		return err
	}
	blob, err := sess.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if blob == "" {
		return nil // nothing recorded for this layer
	}
	if err := sess.ReplaySettings(ctx, blob); err != nil {
		return err
	}
	return sess.Save(ctx)
}

func runReplayAll(cmd *cobra.Command) error {
	dir, backend, err := annotationDir()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	layers := configuredLayers()

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	md := meta.LoadDirectory(ctx, backend, dir, nil)
	var tasks []worker.Task
	for _, de := range dirents {
		if de.IsDir() || strings.Contains(de.Name(), ".mask_") {
			continue
		}
		if md.ImageMeta(de.Name()) == nil {
			continue
		}
		for _, layer := range layers {
			tasks = append(tasks, worker.Task{Image: de.Name(), Layer: layer.Name})
		}
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no annotatable images in %s", dir)
	}

	workers := viper.GetInt("replay.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	progress := worker.NewProgress(len(tasks), viper.GetBool("replay.progress"))
	pool := worker.New(worker.Config{
		Workers:    workers,
		Runner:     replayRunner{backend: backend, dir: dir, layers: layers},
		OnProgress: progress.Callback(),
	})
	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s/%s: %v\n", res.Task.Image, res.Task.Layer, res.Err)
		}
	}
	fmt.Println(progress.Summary())
	if failed > 0 {
		return fmt.Errorf("%d of %d replays failed", failed, len(tasks))
	}
	return nil
}
