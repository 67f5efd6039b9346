package contextstore

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// VarPrefix marks a user-defined fact substituted verbatim into prompts.
const VarPrefix = "Var"

// Rule is one literal find/replace pair.
type Rule struct {
	Pattern     string
	Replacement string
}

// Fact is one named value.
type Fact struct {
	Name  string
	Value string
}

// Config seeds a Store. Maps are copied.
type Config struct {
	// Static holds immutable facts such as SystemInfo and EmojiPrompt.
	Static map[string]string

	// Vars holds reserved-prefix facts. Names without VarPrefix are ignored.
	Vars map[string]string

	// RulesA and RulesB are applied in slice order, A before B.
	RulesA []Rule
	RulesB []Rule
}

// Snapshot is a point-in-time copy of every fact. It is safe to read
// without synchronization.
type Snapshot struct {
	Static    map[string]string
	Vars      []Fact // sorted by name
	Weather   string
	WeatherAt time.Time // last successful refresh; zero if none
	Assets    map[string]string
	RulesA    []Rule
	RulesB    []Rule
}

// Store is the process-wide fact store.
//
// Contract:
// - Concurrency: safe for concurrent use; readers never block on refreshes.
type Store struct {
	static map[string]string
	vars   []Fact
	rulesA []Rule
	rulesB []Rule

	mu        sync.RWMutex
	weather   string
	weatherAt time.Time
	assets    map[string]string
}

// New creates a Store from cfg.
func New(cfg Config) *Store {
	s := &Store{
		static: make(map[string]string, len(cfg.Static)),
		rulesA: append([]Rule(nil), cfg.RulesA...),
		rulesB: append([]Rule(nil), cfg.RulesB...),
		assets: make(map[string]string),
	}
	for k, v := range cfg.Static {
		s.static[k] = v
	}
	for k, v := range cfg.Vars {
		if strings.HasPrefix(k, VarPrefix) {
			s.vars = append(s.vars, Fact{Name: k, Value: v})
		}
	}
	sort.Slice(s.vars, func(i, j int) bool { return s.vars[i].Name < s.vars[j].Name })
	return s
}

// Static returns a static fact.
func (s *Store) Static(name string) (string, bool) {
	v, ok := s.static[name]
	return v, ok
}

// Vars returns the reserved-prefix facts sorted by name.
func (s *Store) Vars() []Fact {
	return append([]Fact(nil), s.vars...)
}

// RulesA returns rule set A in application order.
func (s *Store) RulesA() []Rule {
	return append([]Rule(nil), s.rulesA...)
}

// RulesB returns rule set B in application order.
func (s *Store) RulesB() []Rule {
	return append([]Rule(nil), s.rulesB...)
}

// Weather returns the current weather text.
func (s *Store) Weather() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weather
}

// WeatherRefreshedAt returns the time of the last successful weather
// refresh, or the zero time.
func (s *Store) WeatherRefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weatherAt
}

// SetWeather replaces the weather text. A non-zero refreshedAt records a
// successful refresh; a zero one leaves the previous success time alone.
func (s *Store) SetWeather(value string, refreshedAt time.Time) {
	s.mu.Lock()
	s.weather = value
	if !refreshedAt.IsZero() {
		s.weatherAt = refreshedAt
	}
	s.mu.Unlock()
}

// AssetList returns the asset list for agent.
func (s *Store) AssetList(agent string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.assets[agent]
	return v, ok
}

// SetAssetList replaces the asset list for agent.
func (s *Store) SetAssetList(agent, list string) {
	s.mu.Lock()
	s.assets[agent] = list
	s.mu.Unlock()
}

// Agents returns the agents with an asset list, sorted.
func (s *Store) Agents() []string {
	s.mu.RLock()
	agents := make([]string, 0, len(s.assets))
	for a := range s.assets {
		agents = append(agents, a)
	}
	s.mu.RUnlock()
	sort.Strings(agents)
	return agents
}

// Snapshot copies the current facts.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Static: s.static,
		Vars:   s.vars,
		RulesA: s.rulesA,
		RulesB: s.rulesB,
	}

	s.mu.RLock()
	snap.Weather = s.weather
	snap.WeatherAt = s.weatherAt
	snap.Assets = make(map[string]string, len(s.assets))
	for k, v := range s.assets {
		snap.Assets[k] = v
	}
	s.mu.RUnlock()

	return snap
}
