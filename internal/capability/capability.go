// Package capability holds the names the engine routes to and a simple
// map-backed provider.
package capability

import (
	"codedoc/internal/ports"
	"sort"
)

// Provider names the dispatcher routes to.
const (
	Intake      = "intake"
	Parser      = "parser"
	Indexer     = "indexer"
	Summarizer  = "summarizer"
	QA          = "qa"
	Change      = "change"
	GitHub      = "github"
	Transcriber = "transcriber"
)

// Operation names.
const (
	OpFetchRepo        = "fetch_repo"
	OpParseFile        = "parse_file"
	OpIndexChunks      = "index_chunks"
	OpGenerateOverview = "generate_overview"
	OpGenerateDocs     = "generate_docs"
	OpAnswerQuestion   = "answer_question"
	OpAnalyzePR        = "analyze_pr"
	OpPostPRComment    = "post_pr_comment"
	OpTranscribe       = "transcribe"
)

var _ ports.Capability = (*Provider)(nil)

type Provider struct {
	name string
	ops  map[string]ports.Operation
}

func New(name string, ops map[string]ports.Operation) *Provider {
	copied := make(map[string]ports.Operation, len(ops))
	for k, v := range ops {
		copied[k] = v
	}
	return &Provider{name: name, ops: copied}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Operation(name string) (ports.Operation, bool) {
	op, ok := p.ops[name]
	return op, ok
}

func (p *Provider) Operations() []string {
	names := make([]string, 0, len(p.ops))
	for name := range p.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
