// Package contextstore implements the agent runner's context memory: a
// bounded FIFO of compacted message summaries alongside a richer vector of
// enhanced messages with priority and semantic tagging, following the
// chunking/summarization mechanics in internal/compaction/compaction.go.
package contextstore

import (
	"strings"
	"sync"
	"time"

	"github.com/vtcode-ai/vtcode/internal/compaction"
)

// Priority is the semantic importance assigned to an enhanced message.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// CompactedMessage is one entry in the bounded FIFO history.
type CompactedMessage struct {
	Timestamp        time.Time
	Type             string
	Summary          string
	KeyInfo          []string
	CompressionRatio float64
	OriginalSize     int
}

// EnhancedMessage carries the richer, still-live view of a message before
// it ages out of the uncompressed window.
type EnhancedMessage struct {
	Base              CompactedMessage
	Priority          Priority
	SemanticTags      []string
	ContextReferences []string
	ConversationTurn  int
	RelatedMessages   []string
}

// CompactionResult summarizes one compaction pass.
type CompactionResult struct {
	MessagesProcessed int
	MessagesCompacted int
	OriginalSize      int
	CompactedSize     int
	CompressionRatio  float64
	ProcessingTimeMS  int64
}

// SuggestionUrgency ranks how soon a suggested action should be taken.
type SuggestionUrgency string

const (
	UrgencyLow    SuggestionUrgency = "low"
	UrgencyMedium SuggestionUrgency = "medium"
	UrgencyHigh   SuggestionUrgency = "high"
)

// Suggestion is one non-mutating recommendation derived from the store's
// current size against its configured thresholds.
type Suggestion struct {
	Action           string
	Urgency          SuggestionUrgency
	EstimatedSavings int
	Reasoning        string
}

// Config bounds the store's memory footprint and compaction cadence.
type Config struct {
	MaxUncompressedMessages int
	MaxMemoryMB             int
	CompactionIntervalSecs  int
	AutoCompact             bool
}

// DefaultConfig returns sane defaults: compact after 200 messages, 16MB of
// accumulated original size, or 10 minutes since the last compaction.
func DefaultConfig() Config {
	return Config{
		MaxUncompressedMessages: 200,
		MaxMemoryMB:             16,
		CompactionIntervalSecs:  600,
		AutoCompact:             true,
	}
}

// keywordWeights drives the crude priority analyzer: a message's score is
// the sum of matched keyword weights, mapped to a Priority band.
var keywordWeights = map[string]int{
	"error":    3,
	"failed":   3,
	"critical": 4,
	"success":  1,
	"function": 1,
	"warning":  2,
	"todo":     1,
}

// Store holds both context structures for one agent run. Safe for
// concurrent use.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	nowFn  func() time.Time
	turn   int
	lastAt time.Time

	compacted []CompactedMessage
	enhanced  []EnhancedMessage
}

// New creates a context store. now lets callers inject a deterministic
// clock in tests; pass nil to use time.Now.
func New(cfg Config, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{cfg: cfg, nowFn: now, lastAt: now()}
}

const summaryMaxChars = 100

func summarize(content string) string {
	if len(content) <= summaryMaxChars {
		return content
	}
	return content[:summaryMaxChars] + "..."
}

func extractKeyInfo(content string) []string {
	lower := strings.ToLower(content)
	var found []string
	for kw := range keywordWeights {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func priorityFor(msgType string, keyInfo []string) Priority {
	score := 0
	for _, kw := range keyInfo {
		score += keywordWeights[kw]
	}
	if msgType == "tool_error" {
		score += 3
	}
	switch {
	case score >= 6:
		return PriorityCritical
	case score >= 3:
		return PriorityHigh
	case score >= 1:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// AddMessage records content (already-extracted concatenated text) of the
// given type into both structures, per SPEC_FULL.md's five-step pipeline.
// It returns the CompactionResult of any triggered compaction, or nil if
// none fired.
func (s *Store) AddMessage(content, msgType string) *CompactionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := summarize(content)
	keyInfo := extractKeyInfo(content)
	priority := priorityFor(msgType, keyInfo)

	base := CompactedMessage{
		Timestamp:        s.nowFn(),
		Type:             msgType,
		Summary:          summary,
		KeyInfo:          keyInfo,
		CompressionRatio: ratio(len(summary), len(content)),
		OriginalSize:     len(content),
	}
	s.turn++
	enhanced := EnhancedMessage{
		Base:             base,
		Priority:         priority,
		SemanticTags:     keyInfo,
		ConversationTurn: s.turn,
	}

	s.compacted = append(s.compacted, base)
	s.enhanced = append(s.enhanced, enhanced)

	if s.shouldCompact() {
		return s.compact()
	}
	return nil
}

func ratio(compressed, original int) float64 {
	if original == 0 {
		return 1
	}
	return float64(compressed) / float64(original)
}

func (s *Store) totalOriginalSize() int {
	total := 0
	for _, m := range s.compacted {
		total += m.OriginalSize
	}
	return total
}

func (s *Store) shouldCompact() bool {
	if len(s.compacted) > s.cfg.MaxUncompressedMessages {
		return true
	}
	if s.cfg.MaxMemoryMB > 0 && s.totalOriginalSize() > s.cfg.MaxMemoryMB*1_000_000 {
		return true
	}
	if s.cfg.AutoCompact && s.cfg.CompactionIntervalSecs > 0 {
		if s.nowFn().Sub(s.lastAt) > time.Duration(s.cfg.CompactionIntervalSecs)*time.Second {
			return true
		}
	}
	return false
}

// compact pops messages from the front of both structures until the count
// threshold is satisfied. Must be called with s.mu held.
func (s *Store) compact() *CompactionResult {
	start := s.nowFn()

	target := s.cfg.MaxUncompressedMessages
	if target <= 0 {
		target = compaction.DefaultMinMessagesForSplit
	}

	result := &CompactionResult{}
	for len(s.compacted) > target {
		dropped := s.compacted[0]
		s.compacted = s.compacted[1:]
		s.enhanced = s.enhanced[1:]
		result.MessagesCompacted++
		result.OriginalSize += dropped.OriginalSize
		result.CompactedSize += len(dropped.Summary)
	}
	result.MessagesProcessed = result.MessagesCompacted
	result.CompressionRatio = ratio(result.CompactedSize, result.OriginalSize)
	result.ProcessingTimeMS = s.nowFn().Sub(start).Milliseconds()
	s.lastAt = s.nowFn()
	return result
}

// Messages returns a snapshot of the compacted FIFO, oldest first.
func (s *Store) Messages() []CompactedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CompactedMessage, len(s.compacted))
	copy(out, s.compacted)
	return out
}

// Enhanced returns a snapshot of the enhanced vector, oldest first.
func (s *Store) Enhanced() []EnhancedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EnhancedMessage, len(s.enhanced))
	copy(out, s.enhanced)
	return out
}

// Suggestions derives non-mutating recommendations from the store's
// current size against its configured thresholds.
func (s *Store) Suggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Suggestion
	count := len(s.compacted)
	if s.cfg.MaxUncompressedMessages > 0 && count > s.cfg.MaxUncompressedMessages {
		over := count - s.cfg.MaxUncompressedMessages
		out = append(out, Suggestion{
			Action:           "compact_now",
			Urgency:          UrgencyHigh,
			EstimatedSavings: over,
			Reasoning:        "message count exceeds the uncompressed-message threshold",
		})
	}

	size := s.totalOriginalSize()
	if s.cfg.MaxMemoryMB > 0 {
		limit := s.cfg.MaxMemoryMB * 1_000_000
		if size > limit {
			out = append(out, Suggestion{
				Action:           "compact_now",
				Urgency:          UrgencyHigh,
				EstimatedSavings: size - limit,
				Reasoning:        "accumulated original size exceeds the memory budget",
			})
		} else if float64(size) > float64(limit)*0.8 {
			out = append(out, Suggestion{
				Action:           "consider_compaction",
				Urgency:          UrgencyMedium,
				EstimatedSavings: size / 2,
				Reasoning:        "accumulated original size is approaching the memory budget",
			})
		}
	}

	if s.cfg.AutoCompact && s.cfg.CompactionIntervalSecs > 0 {
		elapsed := s.nowFn().Sub(s.lastAt)
		interval := time.Duration(s.cfg.CompactionIntervalSecs) * time.Second
		if elapsed > interval {
			out = append(out, Suggestion{
				Action:           "compact_now",
				Urgency:          UrgencyLow,
				EstimatedSavings: 0,
				Reasoning:        "compaction interval elapsed since the last compaction",
			})
		}
	}

	return out
}
