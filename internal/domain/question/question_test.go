package question_test

import (
	"math/rand"
	"testing"

	"github.com/quizwise/backend/internal/domain/question"
)

func TestNewSingleChoice(t *testing.T) {
	q, err := question.NewSingleChoice("unit-1", "2 + 2 = ?", "Basic addition.", []string{"3", "4", "5"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Kind() != question.KindSingleChoice {
		t.Errorf("expected kind %q, got %q", question.KindSingleChoice, q.Kind())
	}

	if len(q.Choices()) != 3 {
		t.Fatalf("expected 3 choices, got %d", len(q.Choices()))
	}

	correctID, ok := q.CorrectChoiceID()
	if !ok {
		t.Fatal("expected a correct choice")
	}
	if correctID != q.Choices()[1].ID {
		t.Errorf("expected choice %q to be correct, got %q", q.Choices()[1].ID, correctID)
	}
}

func TestNewSingleChoice_IndexOutOfRange(t *testing.T) {
	if _, err := question.NewSingleChoice("unit-1", "Q", "", []string{"a", "b"}, 2); err == nil {
		t.Error("expected error for out-of-range correct index, got nil")
	}
}

func TestNew_OpenResponse(t *testing.T) {
	q, err := question.New("unit-1", "Explain photosynthesis.", "Light → chemical energy.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Kind() != question.KindOpenResponse {
		t.Errorf("expected kind %q, got %q", question.KindOpenResponse, q.Kind())
	}

	if q.Choices() != nil {
		t.Error("expected no choices for open response")
	}

	if _, ok := q.CorrectChoiceID(); ok {
		t.Error("open response should have no correct choice")
	}
}

func TestNew_EmptyBody(t *testing.T) {
	if _, err := question.New("unit-1", "  ", ""); err != question.ErrEmptyBody {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	image := "https://cdn.example.com/q.png"

	tests := []struct {
		name    string
		q       question.Question
		wantErr bool
	}{
		{
			name: "image only body",
			q:    question.Question{ImageURL: &image, Format: question.OpenResponse{}},
		},
		{
			name:    "missing format",
			q:       question.Question{Body: "Q"},
			wantErr: true,
		},
		{
			name: "two correct choices",
			q: question.Question{Body: "Q", Format: question.SingleChoice{Choices: []question.Choice{
				{ID: "a", IsCorrect: true},
				{ID: "b", IsCorrect: true},
			}}},
			wantErr: true,
		},
		{
			name: "no correct choice",
			q: question.Question{Body: "Q", Format: question.SingleChoice{Choices: []question.Choice{
				{ID: "a"},
				{ID: "b"},
			}}},
			wantErr: true,
		},
		{
			name: "single choice",
			q: question.Question{Body: "Q", Format: question.SingleChoice{Choices: []question.Choice{
				{ID: "a"},
				{ID: "b", IsCorrect: true},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.q.Usable() == tt.wantErr {
				t.Errorf("Usable() = %v, want %v", tt.q.Usable(), !tt.wantErr)
			}
		})
	}
}

func TestWithShuffledChoices_KeepsCorrectChoice(t *testing.T) {
	choices := make([]string, 8)
	for i := range choices {
		choices[i] = string(rune('A' + i))
	}
	q, _ := question.NewSingleChoice("unit-1", "Pick F", "", choices, 5)
	wantCorrect, _ := q.CorrectChoiceID()

	rng := rand.New(rand.NewSource(42))
	moved := false
	for i := 0; i < 10; i++ {
		shuffled := q.WithShuffledChoices(rng)

		gotCorrect, ok := shuffled.CorrectChoiceID()
		if !ok || gotCorrect != wantCorrect {
			t.Fatalf("expected correct choice %q after shuffle, got %q", wantCorrect, gotCorrect)
		}
		if len(shuffled.Choices()) != len(q.Choices()) {
			t.Fatalf("expected %d choices, got %d", len(q.Choices()), len(shuffled.Choices()))
		}
		if shuffled.Choices()[5].ID != wantCorrect {
			moved = true
		}
	}

	if !moved {
		t.Error("expected the correct choice position to change across shuffles")
	}

	// The original must be untouched.
	if q.Choices()[5].ID != wantCorrect {
		t.Error("shuffle mutated the source question")
	}
}

func TestWithShuffledChoices_OpenResponseUnchanged(t *testing.T) {
	q, _ := question.New("unit-1", "Describe", "")
	shuffled := q.WithShuffledChoices(rand.New(rand.NewSource(1)))

	if shuffled.ID != q.ID || shuffled.Kind() != question.KindOpenResponse {
		t.Error("expected open response question to be returned unchanged")
	}
}
