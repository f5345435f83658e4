package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Print the card fields read from an image as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := newExtractionService(cfg).Extract(cmd.Context(), data, func(p dto.RecognitionProgress) {
		logger.Debugf("%s %.0f%%", p.Status, p.Progress*100)
	})
	if err != nil {
		return err
	}

	if resp.LowConfidence {
		logger.Warnf("Low confidence detection (%.1f): review the extracted fields carefully", resp.Confidence)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp.ISICCardData)
}
