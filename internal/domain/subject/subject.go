package subject

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/id"
)

// Area is a course's top-level topic (a "discipline").
// It sits one level above Unit in the hierarchy:
// Area → Units → Questions.
type Area struct {
	ID   string
	Name string
}

// Unit is a subdivision of an Area under which questions are grouped.
type Unit struct {
	ID     string
	AreaID string
	Name   string
}

var ErrEmptyName = errors.New("name cannot be empty")

// NewArea creates an Area with a generated ID.
func NewArea(name string) (*Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Area{
		ID:   id.GenerateID(),
		Name: name,
	}, nil
}

// NewUnit creates a Unit inside the given area.
func NewUnit(areaID, name string) (*Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if areaID == "" {
		return nil, errors.New("unit requires an area")
	}
	return &Unit{
		ID:     id.GenerateID(),
		AreaID: areaID,
		Name:   name,
	}, nil
}
