package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/masklab/internal/mask"
	"github.com/MeKo-Tech/masklab/internal/meta"
)

var statusCmd = &cobra.Command{
	Use:   "status <image>",
	Short: "Print per-layer mask and certification state for an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	imageName := args[0]
	dir, backend, err := annotationDir()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	for _, layer := range configuredLayers() {
		maskPath := mask.FilePath(dir, imageName, layer.Name)
		hasMask, err := backend.Exists(ctx, maskPath)
		if err != nil {
			return fmt.Errorf("check mask %s: %w", maskPath, err)
		}
		cert := meta.LoadCertification(ctx, backend,
			meta.CertPath(dir, imageName, layer.Name), nil)

		state := "empty"
		if hasMask {
			state = "masked"
		}
		flags := make([]string, 0, 2)
		if cert.Certified {
			flags = append(flags, "certified by "+cert.Username)
		}
		if cert.HardExample {
			flags = append(flags, "hard example")
		}
		detail := ""
		if len(flags) > 0 {
			detail = "  (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Printf("%s%-20s %s%s\n",
			strings.Repeat("  ", layer.Indent), layer.Name, state, detail)
	}
	return nil
}
