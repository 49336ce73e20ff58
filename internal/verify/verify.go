package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaxxstorm/poolcheck/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrFetch covers network failures, timeouts and non-success statuses
	// while retrieving the metadata blob.
	ErrFetch       = errors.New("metadata fetch failed")
	ErrInvalidHash = errors.New("expected hash is not a non-empty hex string")
)

const DefaultMaxSize = 1 << 20

type Config struct {
	Timeout time.Duration
	// MaxSize caps the number of bytes read from the metadata URL.
	MaxSize    int64
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Verifier struct {
	config Config
}

func New(cfg Config) *Verifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Verifier{config: cfg}
}

// Verify fetches metaURL once and compares the BLAKE2b-256 digest of the raw
// bytes with expectedHash. The returned result is always populated; a
// non-nil error means the comparison could not be made and Match is false.
func (v *Verifier) Verify(ctx context.Context, metaURL string, expectedHash string) (model.VerificationResult, error) {
	result := model.VerificationResult{
		MetaURL:      metaURL,
		ExpectedHash: expectedHash,
		Timestamp:    time.Now(),
	}

	if !isHex(expectedHash) {
		err := fmt.Errorf("%w: %q", ErrInvalidHash, expectedHash)
		result.Error = err.Error()
		return result, err
	}

	blob, err := v.fetch(ctx, metaURL)
	if err != nil {
		v.config.Logger.Warn("metadata fetch failed", zap.String("url", metaURL), zap.Error(err))
		result.Error = err.Error()
		return result, err
	}

	result.Size = len(blob)
	result.ComputedHash = Digest(blob)
	result.Match = result.ComputedHash == expectedHash
	result.Metadata = decodeMetadata(blob)

	v.config.Logger.Info("metadata verified",
		zap.String("url", metaURL),
		zap.Int("bytes", result.Size),
		zap.String("expected", expectedHash),
		zap.String("computed", result.ComputedHash),
		zap.Bool("match", result.Match),
	)
	return result, nil
}

// Digest returns the lowercase hex BLAKE2b-256 digest of blob.
func Digest(blob []byte) string {
	sum := blake2b.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func (v *Verifier) fetch(ctx context.Context, metaURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	res, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()

	v.config.Logger.Debug("metadata response", zap.String("url", metaURL), zap.String("status", res.Status))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrFetch, res.Status)
	}

	blob, err := io.ReadAll(io.LimitReader(res.Body, v.config.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(blob)) > v.config.MaxSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, v.config.MaxSize)
	}
	return blob, nil
}

func decodeMetadata(blob []byte) *model.PoolMetadata {
	var meta model.PoolMetadata
	if err := json.Unmarshal(blob, &meta); err != nil {
		return nil
	}
	return &meta
}

func isHex(value string) bool {
	if value == "" || strings.TrimSpace(value) != value {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
