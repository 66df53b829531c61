// Package memory defines the bi-temporal memory record: the unit of
// recorded knowledge the Memory Subsystem stores, indexes and searches.
package memory

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
)

// KindTag names which variant of Kind a record carries.
type KindTag string

const (
	KindArchitecturalDecision KindTag = "ArchitecturalDecision"
	KindDebugContext          KindTag = "DebugContext"
	KindKnownIssue            KindTag = "KnownIssue"
	KindConvention            KindTag = "Convention"
	KindProjectContext        KindTag = "ProjectContext"
)

// Severity classifies a KnownIssue.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Kind is the tagged variant over the five memory shapes. Exactly one
// of the typed payloads is populated, matching Tag.
type Kind struct {
	Tag KindTag

	ArchitecturalDecision *ArchitecturalDecision
	DebugContext          *DebugContext
	KnownIssue            *KnownIssue
	Convention            *Convention
	ProjectContext        *ProjectContext
}

type ArchitecturalDecision struct {
	Decision     string
	Rationale    string
	Alternatives []string
	Stakeholders []string
}

type DebugContext struct {
	Problem       string
	RootCause     string
	Solution      string
	Symptoms      []string
	RelatedErrors []string
}

type KnownIssue struct {
	Description string
	Severity    Severity
	Workaround  string
	TrackingID  string
}

type Convention struct {
	Name        string
	Description string
	Pattern     string
	AntiPattern string
}

type ProjectContext struct {
	Topic       string
	Description string
	Tags        []string
}

// SourceTag names which variant of Source a record carries.
type SourceTag string

const (
	SourceUserProvided       SourceTag = "UserProvided"
	SourceCodeExtracted      SourceTag = "CodeExtracted"
	SourceConversationDerived SourceTag = "ConversationDerived"
	SourceExternalDoc        SourceTag = "ExternalDoc"
	SourceGitHistory         SourceTag = "GitHistory"
)

// Source is the tagged variant describing where a memory came from.
type Source struct {
	Tag   SourceTag
	Value string // path / conversation id / url / commit hash, per Tag
}

// CodeNodeType mirrors graph.NodeType's subset relevant to a CodeLink.
type CodeNodeType string

const (
	LinkFunction  CodeNodeType = "Function"
	LinkClass     CodeNodeType = "Class"
	LinkModule    CodeNodeType = "Module"
	LinkFile      CodeNodeType = "File"
	LinkVariable  CodeNodeType = "Variable"
	LinkImport    CodeNodeType = "Import"
	LinkInterface CodeNodeType = "Interface"
	LinkTrait     CodeNodeType = "Trait"
)

// CodeLink is a relevance-weighted reference from a memory to a
// code-graph node, held as an opaque id string — never an ownership
// edge — so the memory store can outlive any particular graph instance.
type CodeLink struct {
	NodeID    string
	NodeType  CodeNodeType
	Relevance float64
	LineStart *int
	LineEnd   *int
}

// NewCodeLink clamps Relevance into [0,1] at construction.
func NewCodeLink(nodeID string, nodeType CodeNodeType, relevance float64) CodeLink {
	return CodeLink{NodeID: nodeID, NodeType: nodeType, Relevance: clamp01(relevance)}
}

// BiTemporal is the Graphiti-style dual-timestamp envelope.
type BiTemporal struct {
	ValidAt      time.Time
	InvalidAt    *time.Time
	CreatedAt    time.Time
	SupersededAt *time.Time
	CommitHash   string
	VersionTag   string
}

// NewBiTemporal stamps both ValidAt and CreatedAt to now.
func NewBiTemporal(now time.Time) BiTemporal {
	return BiTemporal{ValidAt: now, CreatedAt: now}
}

// Current reports whether the record is current at t.
func (bt BiTemporal) Current(t time.Time) bool {
	return bt.InvalidAt == nil || bt.InvalidAt.After(t)
}

// WasValidAt reports the closed-open interval [valid_at, invalid_at).
func (bt BiTemporal) WasValidAt(t time.Time) bool {
	if t.Before(bt.ValidAt) {
		return false
	}
	return bt.InvalidAt == nil || bt.InvalidAt.After(t)
}

// WasCurrentAt reports whether the record was the current version of
// its fact as of the recording timeline at t.
func (bt BiTemporal) WasCurrentAt(t time.Time) bool {
	if t.Before(bt.CreatedAt) {
		return false
	}
	return bt.SupersededAt == nil || bt.SupersededAt.After(t)
}

// Invalidate sets InvalidAt to now, idempotently: once invalidated, a
// later call only tightens (never widens) the current window.
func (bt *BiTemporal) Invalidate(now time.Time) {
	if bt.InvalidAt != nil && !bt.InvalidAt.After(now) {
		return
	}
	bt.InvalidAt = &now
}

// ValidDuration returns invalid_at-or-now minus valid_at, always >= 0.
func (bt BiTemporal) ValidDuration(now time.Time) time.Duration {
	end := now
	if bt.InvalidAt != nil {
		end = *bt.InvalidAt
	}
	d := end.Sub(bt.ValidAt)
	if d < 0 {
		return 0
	}
	return d
}

// Record is one piece of recorded knowledge.
type Record struct {
	ID         string
	Kind       Kind
	Title      string `validate:"required"`
	Content    string `validate:"required"`
	Temporal   BiTemporal
	CodeLinks  []CodeLink
	Embedding  []float32
	Tags       map[string]struct{}
	Source     Source
	Confidence float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var validate = validator.New()

// Builder constructs a Record, enforcing the required kind, title,
// content and source fields (title and content also through validator
// tags) and clamping ranges manually.
type Builder struct {
	rec Record
	now time.Time
}

// NewBuilder starts a Builder stamped with now.
func NewBuilder(now time.Time) *Builder {
	return &Builder{rec: Record{Tags: make(map[string]struct{}), Temporal: NewBiTemporal(now)}, now: now}
}

func (b *Builder) Kind(k Kind) *Builder        { b.rec.Kind = k; return b }
func (b *Builder) Title(t string) *Builder     { b.rec.Title = t; return b }
func (b *Builder) Content(c string) *Builder   { b.rec.Content = c; return b }
func (b *Builder) Source(s Source) *Builder    { b.rec.Source = s; return b }
func (b *Builder) Confidence(c float64) *Builder {
	b.rec.Confidence = clamp01(c)
	return b
}
func (b *Builder) AddCodeLink(l CodeLink) *Builder {
	l.Relevance = clamp01(l.Relevance)
	b.rec.CodeLinks = append(b.rec.CodeLinks, l)
	return b
}
func (b *Builder) AddTag(tag string) *Builder {
	b.rec.Tags[tag] = struct{}{}
	return b
}

// Build validates required fields and assigns an id if absent.
func (b *Builder) Build() (*Record, error) {
	if b.rec.Kind.Tag == "" {
		return nil, cgerrors.Builder("kind is required")
	}
	if strings.TrimSpace(b.rec.Title) == "" {
		return nil, cgerrors.Builder("title is required")
	}
	if b.rec.Content == "" {
		return nil, cgerrors.Builder("content is required")
	}
	if err := validate.Struct(b.rec); err != nil {
		return nil, cgerrors.Builder("build: " + err.Error())
	}
	if b.rec.ID == "" {
		b.rec.ID = uuid.NewString()
	}
	if b.rec.Source.Tag == "" {
		return nil, cgerrors.Builder("source is required")
	}
	rec := b.rec
	return &rec, nil
}

// TagList returns the tag set as a sorted-free slice (order irrelevant per spec).
func (r *Record) TagList() []string {
	out := make([]string, 0, len(r.Tags))
	for t := range r.Tags {
		out = append(out, t)
	}
	return out
}
