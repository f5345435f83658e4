package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aashish23092/isic-card-ocr/dto"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/golang-jwt/jwt/v5"
)

// UploadPath is the backend endpoint that stores reviewed ISIC card data
const UploadPath = "/api/isic/upload"

// BackendClient sends reviewed card data to the wallet backend
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewBackendClient creates a backend client with a request timeout
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// UploadCardData posts one upload request. Any non-2xx response is ErrUpload.
func (c *BackendClient) UploadCardData(ctx context.Context, token string, req dto.ISICUploadRequest) error {
	if tokenExpired(token, c.now()) {
		return fmt.Errorf("%w: access token expired", dto.ErrUpload)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal request: %w", dto.ErrUpload, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", dto.ErrUpload, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", dto.ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: backend returned status %d: %s", dto.ErrUpload, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	logger.Infof("ISIC card data uploaded for virtual card %q", req.VirtualCardID)
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are left for the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
