package model

import (
	"time"

	"github.com/uptrace/bun"
)

type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Analysis is one stored run of the analyzer against a project's code.
// Summary and SecurityScore are copied from the analyzer result once it
// finishes; a degraded result leaves the analysis in AnalysisFailed.
type Analysis struct {
	bun.BaseModel `bun:"table:analyses,alias:a"`

	ID            string         `bun:"id,pk"                 json:"id"`
	ProjectID     string         `bun:"project_id,notnull"    json:"project_id"`
	Status        AnalysisStatus `bun:"status,notnull"        json:"status"`
	Summary       string         `bun:"summary"               json:"summary"`
	SecurityScore int            `bun:"security_score"        json:"security_score"`
	CreatedAt     time.Time      `bun:"created_at,notnull"    json:"created_at"`

	Vulnerabilities []*Vulnerability `bun:"rel:has-many,join:id=analysis_id" json:"vulnerabilities"`
}

type Vulnerability struct {
	bun.BaseModel `bun:"table:vulnerabilities,alias:v"`

	ID          string `bun:"id,pk"               json:"id"`
	AnalysisID  string `bun:"analysis_id,notnull" json:"analysis_id"`
	Type        string `bun:"type,notnull"        json:"type"`
	Severity    string `bun:"severity,notnull"    json:"severity"`
	File        string `bun:"file"                json:"file"`
	Line        string `bun:"line"                json:"line"`
	Description string `bun:"description"         json:"description"`
}
