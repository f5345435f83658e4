package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCorrections(t *testing.T) {
	data := dto.ISICCardData{CardNumber: "12345678", FullName: "Jan Novak", CardType: dto.CardTypePhysical}

	err := applyCorrections(&data, []string{
		"fullName=Jan Petr Novak",
		"expiryDate = 2027-09-30",
		"cardType=digital",
		"institution=Charles University=Prague",
	})
	require.NoError(t, err)

	assert.Equal(t, "12345678", data.CardNumber)
	assert.Equal(t, "Jan Petr Novak", data.FullName)
	assert.Equal(t, "2027-09-30", data.ExpiryDate)
	assert.Equal(t, dto.CardTypeDigital, data.CardType)
	assert.Equal(t, "Charles University=Prague", data.Institution)
}

func TestApplyCorrectionsRejectsBadInput(t *testing.T) {
	data := dto.ISICCardData{}

	assert.Error(t, applyCorrections(&data, []string{"fullName"}))
	assert.Error(t, applyCorrections(&data, []string{"nickname=JN"}))
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &consoleNotifier{w: &buf}

	n.Warn("Low confidence detection", "Please review and correct the extracted fields carefully.")
	n.Progress(dto.RecognitionProgress{Status: "recognizing text", Progress: 1})

	assert.Contains(t, buf.String(), "! Low confidence detection: Please review")
	assert.Contains(t, buf.String(), "100%\n")
}

type failingCloser struct{ calls int }

func (c *failingCloser) Close() error {
	c.calls++
	return errors.New("engine busy")
}

func TestCloseSessionLogsError(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cli.log")
	require.NoError(t, logger.Init(&logger.Config{Level: "info", Format: "json", OutputPath: logFile}))

	closer := &failingCloser{}
	closeSession(closer)
	_ = logger.Sync()

	assert.Equal(t, 1, closer.calls)
	out, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Failed to release OCR engine: engine busy")
}
