package main

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Review is one user-submitted app-store review. SubmittedAt carries the raw
// timestamp string from the source; SubmitTime is filled in by validation.
type Review struct {
	PackageName    string    `json:"Package_Name"`
	AppVersion     string    `json:"App_Version_Name"`
	Language       string    `json:"Reviewer_Language"`
	Device         string    `json:"Device"`
	SubmittedAt    string    `json:"Review_Submit_Date_and_Time"`
	SubmitTime     time.Time `json:"Submit_Time,omitempty"`
	Rating         int       `json:"Star_Rating"`
	Text           string    `json:"Review_Text"`
	Link           string    `json:"Review_Link"`
	Translated     *string   `json:"Translated_Text"`
	Classification string    `json:"Classification,omitempty"`
}

// Window is the contiguous date range a batch of reviews is reported by.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) StartDate() string {
	return w.Start.Format(dateLayout)
}

func (w Window) EndDate() string {
	return w.End.Format(dateLayout)
}

// Key identifies the window in checkpoint storage and file names.
func (w Window) Key() string {
	return fmt.Sprintf("%s-to-%s", w.StartDate(), w.EndDate())
}

func (w Window) String() string {
	return fmt.Sprintf("%s -> %s", w.StartDate(), w.EndDate())
}

func ParseWindow(startDate, endDate string) (Window, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date '%s': %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date '%s': %w", endDate, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	return Window{Start: start, End: end}, nil
}

// RawBatch is the tabular batch handed over by an ingestion source. Columns
// lists the header names actually present so the validator can check the
// schema contract before looking at rows.
type RawBatch struct {
	Columns []string
	Reviews []Review
}

// ReviewEntry is the per-review projection written into the grouped report.
type ReviewEntry struct {
	Device     string  `json:"device"`
	Version    string  `json:"version"`
	Package    string  `json:"package"`
	Rating     int     `json:"rating"`
	Language   string  `json:"language"`
	Text       string  `json:"text"`
	Translated *string `json:"translated"`
	Link       string  `json:"link"`
}

// GroupedReport maps a category token to every review that carried it.
type GroupedReport map[string][]ReviewEntry

// SummaryEntry is one processed window in the summary log.
type SummaryEntry struct {
	StartDate     string         `json:"startDate"`
	EndDate       string         `json:"endDate"`
	File          string         `json:"file"`
	PositiveCount int            `json:"PositiveCount"`
	NegativeCount int            `json:"NegativeCount"`
	Categories    map[string]int `json:"Categories"`
	Ratings       map[string]int `json:"Ratings"`
}
