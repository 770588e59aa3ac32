package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

// Status is the lifecycle state of a research query.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResearchQuery is a submitted research request.
type ResearchQuery struct {
	ID        string
	Query     string
	Status    Status
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Report is a research query together with everything its run produced.
type Report struct {
	ResearchQuery
	Steps    []trace.Record
	Profiles []directory.Profile
	Insights []string
}

// Results is what a finished run writes back.
type Results struct {
	Summary  string
	Steps    []trace.Record
	Profiles []directory.Profile
	Insights []string
}

type queryRow struct {
	ID        string `db:"id"`
	Query     string `db:"query"`
	Status    string `db:"status"`
	Summary   string `db:"summary"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r queryRow) model() (ResearchQuery, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return ResearchQuery{}, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return ResearchQuery{}, err
	}
	return ResearchQuery{
		ID:        r.ID,
		Query:     r.Query,
		Status:    Status(r.Status),
		Summary:   r.Summary,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

type stepRow struct {
	Description string          `db:"description"`
	Reasoning   string          `db:"reasoning"`
	Status      string          `db:"status"`
	Result      string          `db:"result"`
	Confidence  sql.NullFloat64 `db:"confidence"`
	StartTime   string          `db:"start_time"`
	EndTime     sql.NullString  `db:"end_time"`
	Duration    sql.NullFloat64 `db:"duration"`
}

func (r stepRow) record() (trace.Record, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return trace.Record{}, err
	}
	result, err := trace.ParseResult(r.Result)
	if err != nil {
		return trace.Record{}, err
	}

	rec := trace.Record{
		Description: r.Description,
		Reasoning:   r.Reasoning,
		Status:      trace.Status(r.Status),
		Result:      result,
		StartTime:   start,
	}
	if r.Confidence.Valid {
		c := r.Confidence.Float64
		rec.Confidence = &c
	}
	if r.EndTime.Valid {
		end, err := parseTime(r.EndTime.String)
		if err != nil {
			return trace.Record{}, err
		}
		rec.EndTime = &end
	}
	if r.Duration.Valid {
		d := r.Duration.Float64
		rec.Duration = &d
	}
	return rec, nil
}

type profileRow struct {
	Name         string `db:"name"`
	Title        string `db:"title"`
	Organization string `db:"organization"`
	Location     string `db:"location"`
	ProfileURL   string `db:"profile_url"`
	ImageURL     string `db:"image_url"`
	Expertise    string `db:"expertise"`
}

func (r profileRow) profile() (directory.Profile, error) {
	expertise := []string{}
	if r.Expertise != "" {
		if err := json.Unmarshal([]byte(r.Expertise), &expertise); err != nil {
			return directory.Profile{}, fmt.Errorf("decoding expertise: %w", err)
		}
	}
	return directory.Profile{
		Name:         r.Name,
		Title:        r.Title,
		Organization: r.Organization,
		Location:     r.Location,
		ProfileURL:   r.ProfileURL,
		ImageURL:     r.ImageURL,
		Expertise:    expertise,
	}, nil
}
