package httpapi

import (
	"encoding/json"
	"time"

	"presensi/internal/attendance"
	"presensi/internal/poller"
)

type snapshotMeta struct {
	Source      poller.Source `json:"source"`
	Fingerprint string        `json:"fingerprint"`
	FetchedAt   *time.Time    `json:"fetched_at,omitempty"`
	FetchError  string        `json:"fetch_error,omitempty"`
	Skipped     []string      `json:"skipped,omitempty"`
}

func metaOf(s poller.Snapshot) snapshotMeta {
	m := snapshotMeta{
		Source:      s.Source,
		Fingerprint: string(s.Fingerprint),
		FetchedAt:   timePtr(s.FetchedAt),
		FetchError:  s.FetchError,
	}
	for _, w := range s.Warnings {
		m.Skipped = append(m.Skipped, w.String())
	}
	return m
}

type criteriaDTO struct {
	Department string `json:"department"`
	Cohort     string `json:"cohort"`
	Date       string `json:"date"`
}

type countsDTO struct {
	Total           int `json:"total"`
	OnTime          int `json:"on_time"`
	Late            int `json:"late"`
	Complete        int `json:"complete"`
	Incomplete      int `json:"incomplete"`
	OnTimePercent   int `json:"on_time_percent"`
	LatePercent     int `json:"late_percent"`
	CompletePercent int `json:"complete_percent"`
}

func countsOf(c attendance.Counts) countsDTO {
	return countsDTO{
		Total:           c.Total,
		OnTime:          c.OnTime,
		Late:            c.Late,
		Complete:        c.Complete,
		Incomplete:      c.Incomplete,
		OnTimePercent:   c.OnTimePercent(),
		LatePercent:     c.LatePercent(),
		CompletePercent: c.CompletePercent(),
	}
}

type departmentCountsDTO struct {
	Department string    `json:"department"`
	Stats      countsDTO `json:"stats"`
}

type attributesDTO struct {
	Present  []string `json:"present"`
	Missing  []string `json:"missing"`
	Complete bool     `json:"complete"`
	Percent  int      `json:"percent"`
}

func attributesOf(s attendance.AttributeSet) attributesDTO {
	c := s.Completeness()
	return attributesDTO{
		Present:  attendance.Labels(s.Present()),
		Missing:  attendance.Labels(c.Missing),
		Complete: c.Complete,
		Percent:  c.Percent,
	}
}

type punctualityDTO struct {
	Known         bool `json:"known"`
	OnTime        bool `json:"on_time"`
	OffsetMinutes int  `json:"offset_minutes"`
}

func punctualityOf(p attendance.Punctuality) *punctualityDTO {
	return &punctualityDTO{Known: p.Known, OnTime: p.OnTime, OffsetMinutes: p.OffsetMinutes}
}

type recordDTO struct {
	CredentialID     string             `json:"card_id"`
	PersonName       string             `json:"name"`
	Department       string             `json:"department"`
	Cohort           string             `json:"cohort"`
	Date             string             `json:"date"`
	Timestamp        *time.Time         `json:"timestamp"`
	AttendedAt       *time.Time         `json:"attended_at"`
	Status           attendance.Outcome `json:"status"`
	Attributes       attributesDTO      `json:"attributes"`
	Punctuality      *punctualityDTO    `json:"punctuality,omitempty"`
	ConfidenceScores json.RawMessage    `json:"confidence_scores,omitempty"`
}

func recordOf(r attendance.Record, p attendance.Policy) recordDTO {
	return recordDTO{
		CredentialID:     r.CredentialID,
		PersonName:       r.PersonName,
		Department:       r.Department,
		Cohort:           r.Cohort,
		Date:             r.Date,
		Timestamp:        timePtr(r.Timestamp),
		AttendedAt:       timePtr(r.AttendedAt),
		Status:           r.Outcome,
		Attributes:       attributesOf(r.Attributes),
		Punctuality:      punctualityOf(p.Punctuality(r.AttendedAt)),
		ConfidenceScores: r.ConfidenceScores,
	}
}

func historyOf(h attendance.HistoryEntry) recordDTO {
	e := h.Event
	out := recordDTO{
		CredentialID:     e.CredentialID,
		PersonName:       e.PersonName,
		Department:       e.Department,
		Cohort:           e.Cohort,
		Date:             e.Date,
		Timestamp:        timePtr(e.Timestamp),
		AttendedAt:       timePtr(e.AttendedAt),
		Status:           e.Outcome,
		Attributes:       attributesOf(e.Attributes),
		ConfidenceScores: e.ConfidenceScores,
	}
	if !h.Failed() {
		out.Punctuality = punctualityOf(h.Punctuality)
	}
	return out
}

type attendanceResponse struct {
	snapshotMeta
	Criteria      criteriaDTO          `json:"criteria"`
	Stats         countsDTO            `json:"stats"`
	PerDepartment map[string]countsDTO `json:"per_department"`
	Records       []recordDTO          `json:"records"`
}

type recapResponse struct {
	snapshotMeta
	Criteria    criteriaDTO           `json:"criteria"`
	Stats       countsDTO             `json:"stats"`
	Departments []departmentCountsDTO `json:"departments"`
	Records     []recordDTO           `json:"records"`
}

type historyResponse struct {
	snapshotMeta
	Total   int         `json:"total"`
	Entries []recordDTO `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
