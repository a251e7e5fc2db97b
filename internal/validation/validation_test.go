package validation

import (
	"errors"
	"testing"

	"github.com/mmeshcher/clube-madua/internal/model"
)

func TestValidateTask(t *testing.T) {
	valid := model.RoutineTask{Title: "Meditação", Archetype: model.ArchetypeMage, Points: 20, Order: 1}

	tests := []struct {
		name    string
		mutate  func(*model.RoutineTask)
		wantErr error
	}{
		{name: "valid", mutate: func(*model.RoutineTask) {}},
		{name: "min points", mutate: func(t *model.RoutineTask) { t.Points = 1 }},
		{name: "max points", mutate: func(t *model.RoutineTask) { t.Points = 100 }},
		{name: "empty title", mutate: func(t *model.RoutineTask) { t.Title = "  " }, wantErr: ErrEmptyTitle},
		{name: "unknown archetype", mutate: func(t *model.RoutineTask) { t.Archetype = "BARD" }, wantErr: ErrInvalidArchetype},
		{name: "zero points", mutate: func(t *model.RoutineTask) { t.Points = 0 }, wantErr: ErrInvalidPoints},
		{name: "negative points", mutate: func(t *model.RoutineTask) { t.Points = -3 }, wantErr: ErrInvalidPoints},
		{name: "too many points", mutate: func(t *model.RoutineTask) { t.Points = 101 }, wantErr: ErrInvalidPoints},
		{name: "negative order", mutate: func(t *model.RoutineTask) { t.Order = -1 }, wantErr: ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid
			tt.mutate(&task)
			err := ValidateTask(task)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateTask() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateTask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCourse(t *testing.T) {
	price := int64(9900)
	negative := int64(-1)

	tests := []struct {
		name    string
		course  model.Course
		wantErr error
	}{
		{name: "club course", course: model.Course{Title: "Pães", IsPremium: true, IsInClub: true}},
		{name: "standalone with price", course: model.Course{Title: "Pães", IsPremium: true, IsStandalone: true, PriceCents: &price}},
		{name: "misconfigured premium is still valid", course: model.Course{Title: "Pães", IsPremium: true}},
		{name: "empty title", course: model.Course{}, wantErr: ErrEmptyTitle},
		{name: "negative price", course: model.Course{Title: "Pães", PriceCents: &negative}, wantErr: ErrInvalidPrice},
		{name: "standalone without price", course: model.Course{Title: "Pães", IsStandalone: true}, wantErr: ErrMissingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCourse(tt.course)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCourse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCourseAnomaly(t *testing.T) {
	if got := CourseAnomaly(model.Course{IsPremium: true}); got == "" {
		t.Fatalf("expected anomaly for premium course without access path")
	}
	if got := CourseAnomaly(model.Course{IsPremium: true, IsStandalone: true}); got != "" {
		t.Fatalf("unexpected anomaly %q", got)
	}
	if got := CourseAnomaly(model.Course{}); got != "" {
		t.Fatalf("unexpected anomaly %q for free course", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{slug: "pao-de-queijo", valid: true},
		{slug: "receita-2", valid: true},
		{slug: "", valid: false},
		{slug: "-leading", valid: false},
		{slug: "trailing-", valid: false},
		{slug: "Upper", valid: false},
		{slug: "pão", valid: false},
		{slug: "with space", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := IsValidSlug(tt.slug); got != tt.valid {
				t.Fatalf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.valid)
			}
		})
	}
}
