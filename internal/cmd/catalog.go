package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/masklab/internal/catalog"
)

// CatalogFile is the index database name inside an annotation directory.
const CatalogFile = "masklab-catalog.db"

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Maintain and query the annotation index",
}

var catalogBuildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Rebuild the index from the directory's mask and certification files",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogBuild,
}

var catalogQueryCmd = &cobra.Command{
	Use:   "query <dir>",
	Short: "Query the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogQuery,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogBuildCmd)
	catalogCmd.AddCommand(catalogQueryCmd)

	catalogQueryCmd.Flags().Bool("uncertified", false, "Only entries with a mask but no certification")
	catalogQueryCmd.Flags().Bool("hard", false, "Only hard examples")
	catalogQueryCmd.Flags().String("image", "", "Only entries for one image stem")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"catalog.uncertified", "uncertified"},
		{"catalog.hard", "hard"},
		{"catalog.image", "image"},
	}
	for _, b := range bindFlags {
		if err := viper.BindPFlag(b.key, catalogQueryCmd.Flags().Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func runCatalogBuild(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ix, err := catalog.Open(filepath.Join(dir, CatalogFile), nil)
	if err != nil {
		return err
	}
	defer ix.Close()

	return ix.Rebuild(cmd.Context(), dir)
}

func runCatalogQuery(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ix, err := catalog.Open(filepath.Join(dir, CatalogFile), nil)
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx := cmd.Context()
	var entries []catalog.Entry
	switch {
	case viper.GetBool("catalog.uncertified"):
		entries, err = ix.Uncertified(ctx)
	case viper.GetBool("catalog.hard"):
		entries, err = ix.HardExamples(ctx)
	case viper.GetString("catalog.image") != "":
		entries, err = ix.Image(ctx, viper.GetString("catalog.image"))
	default:
		entries, err = ix.All(ctx)
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("%-30s %-15s mask=%-5t certified=%-5t hard=%-5t %s\n",
			e.Image, e.Layer, e.HasMask, e.Certified, e.HardExample, e.Timestamp)
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}
