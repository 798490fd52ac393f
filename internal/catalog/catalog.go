// Package catalog imports and exports the question catalog as YAML or
// JSON documents of areas, units and questions.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/store"
)

const Version = "1.0"

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the document format from a file name.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unsupported catalog file %q", path)
}

type Question struct {
	Kind             string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Body             string   `json:"body" yaml:"body"`
	ImageURL         *string  `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Explanation      string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SolutionImageURL *string  `json:"solution_image_url,omitempty" yaml:"solution_image_url,omitempty"`
	Choices          []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Correct          int      `json:"correct,omitempty" yaml:"correct,omitempty"` // index into Choices
}

type Unit struct {
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

type Area struct {
	Name  string `json:"name" yaml:"name"`
	Units []Unit `json:"units" yaml:"units"`
}

type Document struct {
	Version    string `json:"version" yaml:"version"`
	ExportedAt string `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Areas      []Area `json:"areas" yaml:"areas"`
}

type ImportResult struct {
	AreasCreated     int `json:"areas_created"`
	UnitsCreated     int `json:"units_created"`
	QuestionsCreated int `json:"questions_created"`
	QuestionsSkipped int `json:"questions_skipped"`
}

// Store is what import and export need from a backend.
type Store interface {
	store.Catalog
	ListUnitQuestions(ctx context.Context, unitIDs []string) ([]question.Question, error)
}

func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	switch f {
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decode yaml catalog")
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode json catalog")
		}
	default:
		return nil, errors.Errorf("unknown catalog format %q", f)
	}
	return &doc, nil
}

func Encode(w io.Writer, doc *Document, f Format) error {
	switch f {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "encode yaml catalog")
		}
		_, err = w.Write(data)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(doc), "encode json catalog")
	}
	return errors.Errorf("unknown catalog format %q", f)
}

// Import saves every area, unit and question of doc. Invalid questions
// are logged and skipped; a failing area or unit aborts the import.
func Import(ctx context.Context, s store.Catalog, doc *Document, logger *slog.Logger) (ImportResult, error) {
	var result ImportResult

	for _, a := range doc.Areas {
		area, err := subject.NewArea(a.Name)
		if err != nil {
			return result, errors.Wrapf(err, "area %q", a.Name)
		}
		if err := s.SaveArea(ctx, area); err != nil {
			return result, errors.Wrapf(err, "save area %q", a.Name)
		}
		result.AreasCreated++

		for _, u := range a.Units {
			unit, err := subject.NewUnit(area.ID, u.Name)
			if err != nil {
				return result, errors.Wrapf(err, "unit %q", u.Name)
			}
			if err := s.SaveUnit(ctx, unit); err != nil {
				return result, errors.Wrapf(err, "save unit %q", u.Name)
			}
			result.UnitsCreated++

			for i, dq := range u.Questions {
				q, err := dq.build(unit.ID)
				if err == nil {
					err = s.SaveQuestion(ctx, q)
				}
				if err != nil {
					logger.Warn("skipping question",
						"area", a.Name,
						"unit", u.Name,
						"index", i,
						"error", err,
					)
					result.QuestionsSkipped++
					continue
				}
				result.QuestionsCreated++
			}
		}
	}
	return result, nil
}

func (dq Question) build(unitID string) (*question.Question, error) {
	kind := question.Kind(dq.Kind)
	if kind == "" {
		kind = question.KindOpenResponse
		if len(dq.Choices) > 0 {
			kind = question.KindSingleChoice
		}
	}

	var (
		q   *question.Question
		err error
	)
	switch kind {
	case question.KindSingleChoice:
		q, err = question.NewSingleChoice(unitID, dq.Body, dq.Explanation, dq.Choices, dq.Correct)
	case question.KindOpenResponse:
		if len(dq.Choices) > 0 {
			return nil, errors.New("open response question with choices")
		}
		q, err = question.New(unitID, dq.Body, dq.Explanation)
	default:
		return nil, errors.Errorf("unknown question kind %q", dq.Kind)
	}
	if err != nil {
		return nil, err
	}
	q.ImageURL = dq.ImageURL
	q.SolutionImageURL = dq.SolutionImageURL
	return q, nil
}

// Export reads the whole catalog into a Document.
func Export(ctx context.Context, s Store, now time.Time) (*Document, error) {
	areas, err := s.ListAreas(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list areas")
	}

	doc := &Document{
		Version:    Version,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Areas:      make([]Area, 0, len(areas)),
	}
	for _, a := range areas {
		units, err := s.ListUnits(ctx, a.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "list units of %s", a.ID)
		}
		da := Area{Name: a.Name, Units: make([]Unit, 0, len(units))}
		for _, u := range units {
			questions, err := s.ListUnitQuestions(ctx, []string{u.ID})
			if err != nil {
				return nil, errors.Wrapf(err, "list questions of %s", u.ID)
			}
			du := Unit{Name: u.Name, Questions: make([]Question, 0, len(questions))}
			for _, q := range questions {
				du.Questions = append(du.Questions, exportQuestion(q))
			}
			da.Units = append(da.Units, du)
		}
		doc.Areas = append(doc.Areas, da)
	}
	return doc, nil
}

func exportQuestion(q question.Question) Question {
	dq := Question{
		Kind:             string(q.Kind()),
		Body:             q.Body,
		ImageURL:         q.ImageURL,
		Explanation:      q.Explanation,
		SolutionImageURL: q.SolutionImageURL,
	}
	switch f := q.Format.(type) {
	case question.SingleChoice:
		for i, c := range f.Choices {
			dq.Choices = append(dq.Choices, c.Text)
			if c.IsCorrect {
				dq.Correct = i
			}
		}
	case question.OpenResponse:
	}
	return dq
}
