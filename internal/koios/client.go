package koios

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaxxstorm/poolcheck/internal/model"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.koios.rest/api/v1"

// ErrNoRecord means the directory has no pool for the requested identifier.
var ErrNoRecord = errors.New("no record for pool")

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token when set.
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a thin client for the pool directory.
type Client struct {
	opts Options
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{opts: opts}
}

type poolInfoRequest struct {
	PoolIDs []string `json:"_pool_bech32_ids"`
}

type relay struct {
	DNS  *string `json:"dns"`
	SRV  *string `json:"srv"`
	IPv4 *string `json:"ipv4"`
	IPv6 *string `json:"ipv6"`
	Port *int    `json:"port"`
}

type poolInfo struct {
	PoolIDBech32   string              `json:"pool_id_bech32"`
	PoolIDHex      string              `json:"pool_id_hex"`
	PoolStatus     string              `json:"pool_status"`
	MetaURL        *string             `json:"meta_url"`
	MetaHash       *string             `json:"meta_hash"`
	MetaJSON       *model.PoolMetadata `json:"meta_json"`
	Relays         []relay             `json:"relays"`
	RewardAddr     string              `json:"reward_addr"`
	Owners         []string            `json:"owners"`
	Margin         float64             `json:"margin"`
	FixedCost      string              `json:"fixed_cost"`
	Pledge         string              `json:"pledge"`
	LivePledge     *string             `json:"live_pledge"`
	LiveStake      *string             `json:"live_stake"`
	ActiveStake    *string             `json:"active_stake"`
	BlockCount     *int                `json:"block_count"`
	LiveDelegators *int                `json:"live_delegators"`
	LiveSaturation *float64            `json:"live_saturation"`
}

// PoolRecord looks up poolID and returns the first matching record.
func (c *Client) PoolRecord(ctx context.Context, poolID string) (model.Record, error) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return model.Record{}, fmt.Errorf("%w: empty pool id", ErrNoRecord)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var pools []poolInfo
	if err := c.postJSON(ctx, "/pool_info", poolInfoRequest{PoolIDs: []string{poolID}}, &pools); err != nil {
		return model.Record{}, err
	}
	if len(pools) == 0 {
		return model.Record{}, fmt.Errorf("%w %s", ErrNoRecord, poolID)
	}

	record := toRecord(pools[0])
	if record.ID == "" {
		record.ID = poolID
	}
	c.opts.Logger.Info("pool record loaded",
		zap.String("pool", record.ID),
		zap.String("meta_url", record.MetaURL),
		zap.Int("relays", len(record.Relays)),
	)
	return record, nil
}

func toRecord(p poolInfo) model.Record {
	record := model.Record{
		ID:       p.PoolIDBech32,
		MetaURL:  deref(p.MetaURL),
		MetaHash: deref(p.MetaHash),
		Relays:   make([]model.RelayDescriptor, 0, len(p.Relays)),
		Info: model.PoolInfo{
			Status:      p.PoolStatus,
			IDHex:       p.PoolIDHex,
			RewardAddr:  p.RewardAddr,
			Owners:      p.Owners,
			Margin:      p.Margin,
			FixedCost:   p.FixedCost,
			Pledge:      p.Pledge,
			LivePledge:  deref(p.LivePledge),
			LiveStake:   deref(p.LiveStake),
			ActiveStake: deref(p.ActiveStake),
			Metadata:    p.MetaJSON,
		},
	}
	if p.BlockCount != nil {
		record.Info.BlockCount = *p.BlockCount
	}
	if p.LiveDelegators != nil {
		record.Info.LiveDelegators = *p.LiveDelegators
	}
	if p.LiveSaturation != nil {
		record.Info.LiveSaturation = *p.LiveSaturation
	}
	for _, r := range p.Relays {
		descriptor := model.RelayDescriptor{
			DNS:  deref(r.DNS),
			SRV:  deref(r.SRV),
			IPv4: deref(r.IPv4),
			IPv6: deref(r.IPv6),
		}
		if r.Port != nil {
			descriptor.Port = *r.Port
		}
		record.Relays = append(record.Relays, descriptor)
	}
	return record
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	res, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer res.Body.Close()

	c.opts.Logger.Debug("directory response", zap.String("path", path), zap.String("status", res.Status))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("directory request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("directory request failed: %s", res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}
