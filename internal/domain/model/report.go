// Package model contains domain models passed between layers.
package model

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MemoryInfo carries the RAM figures a server reports about itself.
type MemoryInfo struct {
	FreeBytes  int64 `json:"free_memory_bytes"`
	UsedBytes  int64 `json:"used_memory_bytes"`
	TotalBytes int64 `json:"total_memory_bytes"`
}

// FreeRatio returns free/total clamped to [0,1]; 0 when totals are missing.
func (m MemoryInfo) FreeRatio() float64 {
	if m.TotalBytes <= 0 {
		return 0
	}
	r := float64(m.FreeBytes) / float64(m.TotalBytes)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// UsageRatio returns used/total clamped to [0,1].
func (m MemoryInfo) UsageRatio() float64 {
	if m.TotalBytes <= 0 {
		return 0
	}
	r := float64(m.UsedBytes) / float64(m.TotalBytes)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// SystemInfo carries host facts from the report payload.
type SystemInfo struct {
	CPUCores    int        `json:"cpu_cores"`
	CPUThreads  int        `json:"cpu_threads"`
	CPUModel    string     `json:"cpu_model"`
	JavaVersion string     `json:"java_version"`
	OSName      string     `json:"os_name"`
	OSVersion   string     `json:"os_version"`
	OSArch      string     `json:"os_arch"`
	UptimeMS    int64      `json:"uptime_ms"`
	Memory      MemoryInfo `json:"memory_ram_info"`
}

// UptimeHours converts process uptime to hours.
func (s SystemInfo) UptimeHours() float64 {
	return float64(s.UptimeMS) / float64(time.Hour/time.Millisecond)
}

// ActivePlayer identifies one connected player.
type ActivePlayer struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Payload is the telemetry body of a report.
type Payload struct {
	ActivePlayers []ActivePlayer `json:"active_players"`
	MaxPlayers    int            `json:"max_players"`
	Memory        MemoryInfo     `json:"memory_ram_info"`
	Plugins       []string       `json:"plugins"`
	SystemInfo    SystemInfo     `json:"system_info"`
	TPSMillis     int64          `json:"tps_millis"`
	UptimeMS      int64          `json:"uptime_ms"`
}

// maxActualTPS caps the tick rate derived from tps_millis; a Minecraft server
// does not tick faster than 20 times per second.
const maxActualTPS = 20.0

// ActualTPS converts the reported tick duration (ms per tick) to ticks per
// second, capped at the engine maximum. Zero and negative durations yield 0.
func (p Payload) ActualTPS() float64 {
	if p.TPSMillis <= 0 {
		return 0
	}
	tps := 1000.0 / float64(p.TPSMillis)
	if tps > maxActualTPS {
		return maxActualTPS
	}
	return tps
}

// PlayerCount returns the number of active players.
func (p Payload) PlayerCount() int {
	return len(p.ActivePlayers)
}

// PlayerRatio returns occupancy in [0,1]; 0 when capacity is unknown.
func (p Payload) PlayerRatio() float64 {
	if p.MaxPlayers <= 0 {
		return 0
	}
	r := float64(p.PlayerCount()) / float64(p.MaxPlayers)
	if r > 1 {
		return 1
	}
	return r
}

// HasPlugins reports whether every name in required is present in the
// payload's plugin list. Matching is case-insensitive and trims whitespace.
func (p Payload) HasPlugins(required []string) bool {
	if len(required) == 0 {
		return true
	}
	present := make(map[string]struct{}, len(p.Plugins))
	for _, plugin := range p.Plugins {
		present[strings.ToLower(strings.TrimSpace(plugin))] = struct{}{}
	}
	for _, want := range required {
		if _, ok := present[strings.ToLower(strings.TrimSpace(want))]; !ok {
			return false
		}
	}
	return true
}

// Report is one signed telemetry submission from a server. Immutable once
// parsed; the engine consumes it read-only.
type Report struct {
	ID                string  `json:"id"`
	ServerID          string  `json:"server_id"`
	Counter           int64   `json:"counter"`
	ClientTimestampMS int64   `json:"client_timestamp_ms"`
	Nonce             string  `json:"nonce"`
	PluginHash        string  `json:"plugin_hash"`
	PayloadHash       string  `json:"payload_hash"`
	Payload           Payload `json:"payload"`
	Signature         string  `json:"signature"`
	CreatedAt         string  `json:"created_at"`
}

// ParseReport decodes and structurally validates a report. Out-of-range but
// plausible values are left for the verifier to clamp; structural corruption
// (negative counters, negative memory, missing identity) is a hard reject.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Report) validate() error {
	switch {
	case r.ServerID == "":
		return fmt.Errorf("%w: missing server_id", ErrMalformedReport)
	case r.Counter < 0:
		return fmt.Errorf("%w: negative counter %d", ErrMalformedReport, r.Counter)
	case r.ClientTimestampMS < 0:
		return fmt.Errorf("%w: negative client_timestamp_ms", ErrMalformedReport)
	case r.Payload.TPSMillis < 0:
		return fmt.Errorf("%w: negative tps_millis", ErrMalformedReport)
	case r.Payload.MaxPlayers < 0:
		return fmt.Errorf("%w: negative max_players", ErrMalformedReport)
	case r.Payload.Memory.FreeBytes < 0 || r.Payload.Memory.UsedBytes < 0 || r.Payload.Memory.TotalBytes < 0:
		return fmt.Errorf("%w: negative memory figure", ErrMalformedReport)
	case r.Payload.SystemInfo.UptimeMS < 0 || r.Payload.UptimeMS < 0:
		return fmt.Errorf("%w: negative uptime", ErrMalformedReport)
	}
	return nil
}

// CanonicalPayload returns the deterministic JSON serialization the hash and
// signature bind to: players sorted by uuid, plugins sorted, object keys
// sorted, compact separators. This mirrors the collector's canonical form.
func (r *Report) CanonicalPayload() ([]byte, error) {
	players := make([]map[string]string, len(r.Payload.ActivePlayers))
	sorted := make([]ActivePlayer, len(r.Payload.ActivePlayers))
	copy(sorted, r.Payload.ActivePlayers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UUID < sorted[j].UUID })
	for i, p := range sorted {
		players[i] = map[string]string{"name": p.Name, "uuid": p.UUID}
	}

	plugins := make([]string, len(r.Payload.Plugins))
	copy(plugins, r.Payload.Plugins)
	sort.Strings(plugins)

	// json.Marshal emits map keys in sorted order, which gives the canonical
	// key ordering for every nested object here.
	canonical := map[string]interface{}{
		"active_players": players,
		"max_players":    r.Payload.MaxPlayers,
		"memory_ram_info": map[string]int64{
			"free_memory_bytes":  r.Payload.Memory.FreeBytes,
			"used_memory_bytes":  r.Payload.Memory.UsedBytes,
			"total_memory_bytes": r.Payload.Memory.TotalBytes,
		},
		"plugins": plugins,
		"system_info": map[string]interface{}{
			"cpu_cores":    r.Payload.SystemInfo.CPUCores,
			"cpu_threads":  r.Payload.SystemInfo.CPUThreads,
			"cpu_model":    r.Payload.SystemInfo.CPUModel,
			"java_version": r.Payload.SystemInfo.JavaVersion,
			"os_name":      r.Payload.SystemInfo.OSName,
			"os_version":   r.Payload.SystemInfo.OSVersion,
			"os_arch":      r.Payload.SystemInfo.OSArch,
			"uptime_ms":    r.Payload.SystemInfo.UptimeMS,
			"memory_ram_info": map[string]int64{
				"free_memory_bytes":  r.Payload.SystemInfo.Memory.FreeBytes,
				"used_memory_bytes":  r.Payload.SystemInfo.Memory.UsedBytes,
				"total_memory_bytes": r.Payload.SystemInfo.Memory.TotalBytes,
			},
		},
		"tps_millis": r.Payload.TPSMillis,
		"uptime_ms":  r.Payload.UptimeMS,
	}
	return json.Marshal(canonical)
}

// ComputePayloadHash returns base64url(SHA-256(canonical payload)) without
// padding, the format the collector embeds in payload_hash.
func (r *Report) ComputePayloadHash() (string, error) {
	canonical, err := r.CanonicalPayload()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// SigningMessage returns the bytes the server signs:
// server_id:payload_hash:nonce:counter.
func (r *Report) SigningMessage() []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%d", r.ServerID, r.PayloadHash, r.Nonce, r.Counter))
}

// ClientTime returns the client timestamp as a time.Time.
func (r *Report) ClientTime() time.Time {
	return time.UnixMilli(r.ClientTimestampMS)
}

// CreatedTime parses created_at; falls back to the client timestamp when the
// field is absent or unparseable.
func (r *Report) CreatedTime() time.Time {
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			return t
		}
	}
	return r.ClientTime()
}

// Age returns how old the report is relative to now.
func (r *Report) Age(now time.Time) time.Duration {
	return now.Sub(r.ClientTime())
}
