package study

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

// MaxNameLength bounds study names.
const MaxNameLength = 120

// Study is one entry of the catalog.
type Study struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Visible     bool      `json:"visible"`
	DirPath     string    `json:"-"`
	DBPath      string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput holds the user supplied fields of a new study.
type CreateInput struct {
	Name        string  `json:"name"        form:"name"        validate:"required,max=120"`
	Description string  `json:"description" form:"description" validate:"max=4000"`
	Lat         float64 `json:"lat"         form:"lat"         validate:"gte=-90,lte=90"`
	Lon         float64 `json:"lon"         form:"lon"         validate:"gte=-180,lte=180"`
}

// UpdateInput holds the editable fields of an existing study.
type UpdateInput CreateInput

// ListFilter narrows ListStudies.
type ListFilter struct {
	VisibleOnly bool
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize trims the text fields in place.
func (in *CreateInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

// Validate checks field constraints and reports the first failing field.
func (in *CreateInput) Validate() error {
	in.Normalize()
	if err := structValidator().Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStudy, describeValidation(err))
	}
	if NewID(in.Name) == "" {
		return fmt.Errorf("%w: name must contain letters or digits", ErrInvalidStudy)
	}
	return nil
}

// Validate applies the creation rules to an update.
func (in *UpdateInput) Validate() error {
	return (*CreateInput)(in).Validate()
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// NewID derives the immutable identifier of a study from its name.
func NewID(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// Apply copies the editable fields onto s.
func (s *Study) Apply(in *UpdateInput) {
	s.Name = in.Name
	s.Description = in.Description
	s.Lat = in.Lat
	s.Lon = in.Lon
}
