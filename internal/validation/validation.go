// Package validation содержит проверки данных, вводимых администратором.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mmeshcher/clube-madua/internal/access"
	"github.com/mmeshcher/clube-madua/internal/model"
)

const (
	// MinTaskPoints и MaxTaskPoints ограничивают очки задачи распорядка.
	MinTaskPoints = 1
	MaxTaskPoints = 100
)

var (
	// ErrEmptyTitle возвращается для сущности без названия.
	ErrEmptyTitle = errors.New("title is required")
	// ErrInvalidArchetype возвращается для неизвестного архетипа задачи.
	ErrInvalidArchetype = errors.New("invalid archetype")
	// ErrInvalidPoints возвращается, если очки задачи вне допустимого диапазона.
	ErrInvalidPoints = errors.New("points out of range")
	// ErrInvalidOrder возвращается для отрицательного порядка задачи.
	ErrInvalidOrder = errors.New("order must not be negative")
	// ErrInvalidPrice возвращается для отрицательной цены курса.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrMissingPrice возвращается, если курс продаётся отдельно, но цена не задана.
	ErrMissingPrice = errors.New("standalone course requires a price")
	// ErrInvalidSlug возвращается для адреса статьи с недопустимыми символами.
	ErrInvalidSlug = errors.New("invalid slug")
)

// ValidateTask проверяет задачу распорядка перед созданием.
func ValidateTask(t model.RoutineTask) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Archetype.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidArchetype, t.Archetype)
	}
	if t.Points < MinTaskPoints || t.Points > MaxTaskPoints {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidPoints, t.Points, MinTaskPoints, MaxTaskPoints)
	}
	if t.Order < 0 {
		return ErrInvalidOrder
	}
	return nil
}

// ValidateCourse проверяет карточку курса. Курс без пути покупки здесь не
// отклоняется, о нём сообщает CourseAnomaly.
func ValidateCourse(c model.Course) error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if c.PriceCents != nil && *c.PriceCents < 0 {
		return ErrInvalidPrice
	}
	if c.IsStandalone && c.PriceCents == nil {
		return ErrMissingPrice
	}
	return nil
}

// CourseAnomaly возвращает описание ошибки конфигурации курса или пустую строку.
func CourseAnomaly(c model.Course) string {
	if access.HasNoAccessPath(c) {
		return "premium course is neither in club nor standalone"
	}
	return ""
}

// IsValidSlug проверяет адрес статьи: строчные латинские буквы, цифры и дефисы.
func IsValidSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for _, ch := range slug {
		if ch > unicode.MaxASCII {
			return false
		}
		if !unicode.IsLower(ch) && !unicode.IsDigit(ch) && ch != '-' {
			return false
		}
	}
	return true
}
