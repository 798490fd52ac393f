package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Kind distinguishes untimed practice from timed exams.
type Kind string

const (
	KindPractice  Kind = "practice"
	KindTimedExam Kind = "timed_exam"
)

// Config holds what the learner asked for when starting a session.
type Config struct {
	LearnerID     string         `validate:"required"`
	AreaID        string         // subject area the session is reported under
	UnitIDs       []string       `validate:"required,min=1,dive,required"`
	QuestionCount int            `validate:"gte=1,lte=500"`
	Kind          Kind           `validate:"required,oneof=practice timed_exam"`
	TimeLimit     *time.Duration // nil = no time limit; required for timed exams
}

// DefaultConfig returns a ten-question practice session config.
func DefaultConfig() Config {
	return Config{
		QuestionCount: 10,
		Kind:          KindPractice,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		if cfg.TimeLimit != nil && *cfg.TimeLimit <= 0 {
			sl.ReportError(cfg.TimeLimit, "TimeLimit", "TimeLimit", "gt", "0")
		}
		if cfg.Kind == KindTimedExam && cfg.TimeLimit == nil {
			sl.ReportError(cfg.TimeLimit, "TimeLimit", "TimeLimit", "required_for_timed_exam", "")
		}
	}, Config{})
	return v
}

// Validate reports the first invalid field of the config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Wrapf(ErrInvalidConfig, "%s failed on %q", fe.Field(), fe.Tag())
		}
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}
