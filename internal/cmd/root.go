package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/masklab/internal/session"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "masklab",
	Short: "Layered raster mask annotation",
	Long: `Masklab edits per-layer binary masks over source images: drawing,
algorithm-assisted masking, bounded undo, and per-layer certification
records that survive round trips through external tools.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "Annotation directory (local path or s3://bucket/prefix)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	if err := viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("MASKLAB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// annotationDir returns the configured directory and a backend for it.
func annotationDir() (string, storage.Backend, error) {
	dir := viper.GetString("dir")
	backend, err := storage.ForPath(dir)
	if err != nil {
		return "", nil, err
	}
	return dir, backend, nil
}

// configuredLayers reads the layer list from config, defaulting to a single
// unnamed default layer.
func configuredLayers() []session.Layer {
	names := viper.GetStringSlice("layers")
	if len(names) == 0 {
		names = []string{"default"}
	}
	return session.ParseLayers(names)
}
