// Package imagehost uploads category and item images to the external image
// host and returns their public URL.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"forumshop/internal/apperr"
	"forumshop/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = apperr.New(apperr.KindValidation, "unsupported_image_type", "Unsupported image type")
	ErrTooLarge        = apperr.New(apperr.KindValidation, "image_too_large", "Image exceeds the size limit")
	ErrEmpty           = apperr.New(apperr.KindValidation, "image_empty", "Image file is empty")
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const tokenTTL = time.Minute

type Client struct {
	http    *http.Client
	baseURL string
	secret  []byte
	issuer  string
	maxSize int64
}

func New(cfg config.ImageHostConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		maxSize: cfg.MaxSize,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload checks the file type and size, then posts it to the host.
func (c *Client) Upload(ctx context.Context, file io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(file, c.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > c.maxSize {
		return "", ErrTooLarge.WithMessage("Image exceeds the %d byte limit", c.maxSize)
	}
	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedTypes...) {
		return "", ErrUnsupportedType.WithMessage("Unsupported image type: %s", detected.String())
	}

	objectName := uuid.NewString() + detected.Extension()
	token, err := c.token(objectName)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", objectName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.ErrUpstream.WithMessage("Image upload failed").Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.ErrUpstream.WithMessage("Image upload failed with status %d", resp.StatusCode)
	}
	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.URL == "" {
		return "", apperr.ErrUpstream.WithMessage("Image host returned no URL")
	}
	return payload.URL, nil
}

func (c *Client) token(objectName string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   objectName,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign upload token: %w", err)
	}
	return signed, nil
}
