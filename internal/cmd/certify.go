package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/masklab/internal/mask"
	"github.com/MeKo-Tech/masklab/internal/meta"
)

var certifyCmd = &cobra.Command{
	Use:   "certify <image>",
	Short: "Certify a layer's mask (or flag it as a hard example)",
	Long: `Certify records a sign-off for one image layer. The record is only
rewritten when the certified flag, the hard-example flag, or the mask file
content actually changed, so repeated runs do not churn timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: runCertify,
}

func init() {
	rootCmd.AddCommand(certifyCmd)

	certifyCmd.Flags().StringP("layer", "l", "default", "Layer to certify")
	certifyCmd.Flags().Bool("certified", true, "Certified state to record")
	certifyCmd.Flags().Bool("hard", false, "Flag the layer as a hard example")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"certify.layer", "layer"},
		{"certify.certified", "certified"},
		{"certify.hard", "hard"},
	}
	for _, b := range bindFlags {
		if err := viper.BindPFlag(b.key, certifyCmd.Flags().Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func runCertify(cmd *cobra.Command, args []string) error {
	imageName := args[0]
	layer := viper.GetString("certify.layer")
	certified := viper.GetBool("certify.certified")
	hard := viper.GetBool("certify.hard")

	dir, backend, err := annotationDir()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	maskPath := mask.FilePath(dir, imageName, layer)
	sum, err := meta.HashFile(ctx, backend, maskPath)
	if err != nil {
		return fmt.Errorf("hash mask %s: %w", maskPath, err)
	}

	certPath := meta.CertPath(dir, imageName, layer)
	cert := meta.LoadCertification(ctx, backend, certPath, nil)
	maskChanged := sum != cert.MD5Sum
	if !cert.NeedsWrite(certified, hard, maskChanged) {
		fmt.Println("certification unchanged, nothing written")
		return nil
	}
	next := cert.Next(certified, hard, maskChanged, sum)
	if err := next.Write(ctx, backend, certPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s (certified=%t hard=%t)\n", certPath, next.Certified, next.HardExample)
	return nil
}
