package model

import "time"

type RelayDescriptor struct {
	DNS  string `json:"dns,omitempty"`
	SRV  string `json:"srv,omitempty"`
	IPv4 string `json:"ipv4,omitempty"`
	IPv6 string `json:"ipv6,omitempty"`
	Port int    `json:"port,omitempty"`
}

type PoolMetadata struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
}

type PoolInfo struct {
	Status         string        `json:"pool_status,omitempty"`
	IDHex          string        `json:"pool_id_hex,omitempty"`
	RewardAddr     string        `json:"reward_addr,omitempty"`
	Owners         []string      `json:"owners,omitempty"`
	Margin         float64       `json:"margin"`
	FixedCost      string        `json:"fixed_cost,omitempty"`
	Pledge         string        `json:"pledge,omitempty"`
	LivePledge     string        `json:"live_pledge,omitempty"`
	LiveStake      string        `json:"live_stake,omitempty"`
	ActiveStake    string        `json:"active_stake,omitempty"`
	BlockCount     int           `json:"block_count"`
	LiveDelegators int           `json:"live_delegators"`
	LiveSaturation float64       `json:"live_saturation"`
	Metadata       *PoolMetadata `json:"meta_json,omitempty"`
}

// Record is the pool as returned by the directory. It is replaced wholesale
// when a different pool is requested.
type Record struct {
	ID       string            `json:"id"`
	MetaURL  string            `json:"meta_url"`
	MetaHash string            `json:"meta_hash"`
	Relays   []RelayDescriptor `json:"relays"`
	Info     PoolInfo          `json:"info"`
}

type AddressKind string

const (
	KindDNS  AddressKind = "dns"
	KindSRV  AddressKind = "srv"
	KindIPv4 AddressKind = "ipv4"
	KindIPv6 AddressKind = "ipv6"
)

type ProbeTarget struct {
	Host string      `json:"host"`
	Port int         `json:"port"`
	Kind AddressKind `json:"kind"`
}

type ProbeResult struct {
	Target     ProbeTarget `json:"target"`
	Address    string      `json:"address"`
	Reachable  bool        `json:"reachable"`
	Method     string      `json:"method"`
	Samples    []float64   `json:"samples_ms"`
	Attempts   int         `json:"attempts"`
	MinMs      float64     `json:"min_ms"`
	MaxMs      float64     `json:"max_ms"`
	AvgMs      float64     `json:"avg_ms"`
	PacketLoss float64     `json:"packet_loss"`
	Error      string      `json:"error,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type VerificationResult struct {
	MetaURL      string        `json:"meta_url"`
	ExpectedHash string        `json:"expected_hash"`
	ComputedHash string        `json:"computed_hash"`
	Match        bool          `json:"match"`
	Size         int           `json:"size"`
	Metadata     *PoolMetadata `json:"metadata,omitempty"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

type EventKind string

const (
	EventVerification EventKind = "verification"
	EventProbe        EventKind = "probe"
)

// Event is one element of a run's output stream. Exactly one of
// Verification or Probe is set, matching Kind.
type Event struct {
	Kind         EventKind           `json:"kind"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Probe        *ProbeResult        `json:"probe,omitempty"`
}

type Diagnosis struct {
	Classification string   `json:"classification"`
	Summary        string   `json:"summary"`
	Reachable      int      `json:"reachable"`
	Unreachable    int      `json:"unreachable"`
	Hints          []string `json:"hints,omitempty"`
}
