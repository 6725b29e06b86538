// Package priority derives the ordering score of a task from its importance
// and urgency levels.
//
// The score weighs importance at 0.6 and urgency at 0.4:
//
//	score = (6*importance + 4*urgency) / 10
//
// It is evaluated over integer tenths so identical inputs always produce the
// same float64, and a default Medium/Medium task scores exactly 2.0.
package priority

import (
	"errors"
	"fmt"
)

// Level is an importance or urgency rating.
type Level int

const (
	Low Level = iota + 1
	Medium
	High
	Critical
)

// Default is used when a task is created without a level.
const Default = Medium

const (
	importanceWeight = 6
	urgencyWeight    = 4
)

var ErrInvalidLevel = errors.New("level must be an integer between 1 and 4")

var labels = map[Level]string{
	Low:      "Low",
	Medium:   "Medium",
	High:     "High",
	Critical: "Critical",
}

var colors = map[Level]string{
	Low:      "#4CAF50",
	Medium:   "#FF7811",
	High:     "#F44336",
	Critical: "#9C27B0",
}

// ParseLevel validates n. Values outside 1..4 are rejected, never clamped.
func ParseLevel(n int) (Level, error) {
	l := Level(n)
	if !l.IsValid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidLevel, n)
	}
	return l, nil
}

// IsValid reports whether l is one of the four defined levels.
func (l Level) IsValid() bool {
	_, ok := labels[l]
	return ok
}

// String returns the human label, or "Unknown" for invalid levels.
func (l Level) String() string {
	if name, ok := labels[l]; ok {
		return name
	}
	return "Unknown"
}

// Score computes the priority score for an importance/urgency pair.
func Score(importance, urgency int) (float64, error) {
	i, err := ParseLevel(importance)
	if err != nil {
		return 0, fmt.Errorf("importance: %w", err)
	}
	u, err := ParseLevel(urgency)
	if err != nil {
		return 0, fmt.Errorf("urgency: %w", err)
	}
	return float64(importanceWeight*int(i)+urgencyWeight*int(u)) / 10, nil
}

// Label returns Low, Medium, High or Critical.
func Label(level int) (string, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return "", err
	}
	return l.String(), nil
}

// ImportanceIcon returns an inline SVG square coloured by level.
func ImportanceIcon(level int) (string, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 16 16" aria-label="%s importance"><rect x="2" y="2" width="12" height="12" rx="2" fill="%s"/></svg>`,
		l, colors[l],
	), nil
}

// UrgencyIcon returns an inline SVG triangle coloured by level.
func UrgencyIcon(level int) (string, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 16 16" aria-label="%s urgency"><polygon points="8,2 14,14 2,14" fill="%s"/></svg>`,
		l, colors[l],
	), nil
}
