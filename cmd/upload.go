package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aashish23092/isic-card-ocr/client"
	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/service"
	"github.com/Aashish23092/isic-card-ocr/utils"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Read a card image, apply corrections and link it to a virtual card",
	Long: `Run a full upload session for one card image: recognize the card,
apply field corrections, validate and, unless --no-save is given, send the
reviewed data and the image to the wallet backend.

Examples:
  isic-ocr upload card.jpg --card-id vc-42 --token "$WALLET_TOKEN"

  # Fix a misread name and keep the data local
  isic-ocr upload card.jpg --card-id vc-42 --set fullName="Jan Novak" --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("card-id", "", "virtual card id to link")
	uploadCmd.Flags().String("token", "", "wallet access token")
	uploadCmd.Flags().Bool("no-save", false, "do not send card data to the backend")
	uploadCmd.Flags().StringArray("set", nil, "correct a field, e.g. --set expiryDate=2027-09-30 (repeatable)")
	_ = uploadCmd.MarkFlagRequired("card-id")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cardID, _ := cmd.Flags().GetString("card-id")
	token, _ := cmd.Flags().GetString("token")
	noSave, _ := cmd.Flags().GetBool("no-save")
	sets, _ := cmd.Flags().GetStringArray("set")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	session := service.NewUploadSession(service.SessionOptions{
		ID:                     "cli",
		VirtualCardID:          cardID,
		Token:                  token,
		Recognizer:             client.NewRecognitionManager(newEngineFactory(cfg), cfg.RecognitionTimeout),
		Preprocessor:           service.NewImagePreprocessor(),
		Extractor:              utils.NewISICExtractor(),
		Uploader:               newUploader(cfg),
		Notifier:               &consoleNotifier{w: cmd.ErrOrStderr()},
		ScanBarcode:            service.ScanCardNumber,
		MaxFileSize:            cfg.MaxFileSize,
		LowConfidenceThreshold: cfg.LowConfidenceThreshold,
	})
	defer closeSession(session)

	file := dto.UploadedFile{Name: filepath.Base(args[0]), Data: data}
	if err := session.Drop(cmd.Context(), file); err != nil {
		return err
	}

	state := session.State()
	fields := *state.ExtractedData
	if err := applyCorrections(&fields, sets); err != nil {
		return err
	}

	if err := session.SetSaveToServer(!noSave); err != nil {
		return err
	}

	if err := session.Submit(cmd.Context(), fields); err != nil {
		var verrs dto.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", e.Field, e.Message)
			}
			return fmt.Errorf("card data is invalid; fix it with --set field=value")
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fields)
}

// closeSession releases the session's recognition worker
func closeSession(session interface{ Close() error }) {
	if err := session.Close(); err != nil {
		logger.Warnf("Failed to release OCR engine: %v", err)
	}
}

// applyCorrections sets fields from field=value pairs keyed by JSON name
func applyCorrections(data *dto.ISICCardData, sets []string) error {
	for _, set := range sets {
		field, value, ok := strings.Cut(set, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: expected field=value", set)
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(field) {
		case "cardNumber":
			data.CardNumber = value
		case "fullName":
			data.FullName = value
		case "dateOfBirth":
			data.DateOfBirth = value
		case "expiryDate":
			data.ExpiryDate = value
		case "institution":
			data.Institution = value
		case "cardType":
			data.CardType = dto.CardType(value)
		default:
			return fmt.Errorf("unknown field %q", field)
		}
	}
	return nil
}

// consoleNotifier prints session notifications for a terminal user
type consoleNotifier struct {
	w io.Writer
}

func (n *consoleNotifier) Progress(p dto.RecognitionProgress) {
	fmt.Fprintf(n.w, "\r%-24s %3.0f%%", p.Status, p.Progress*100)
	if p.Progress >= 1 {
		fmt.Fprintln(n.w)
	}
}

func (n *consoleNotifier) Info(title, description string) {
	fmt.Fprintf(n.w, "%s: %s\n", title, description)
}

func (n *consoleNotifier) Success(title, description string) {
	fmt.Fprintf(n.w, "✓ %s %s\n", title, description)
}

func (n *consoleNotifier) Warn(title, description string) {
	fmt.Fprintf(n.w, "! %s: %s\n", title, description)
}

func (n *consoleNotifier) Error(title, description string) {
	fmt.Fprintf(n.w, "✗ %s: %s\n", title, description)
}
