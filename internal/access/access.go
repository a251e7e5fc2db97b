// Package access содержит правила доступа к контенту клуба: какую часть статьи,
// рецепта или курса видит посетитель в зависимости от подписки и покупок.
package access

import (
	"golang.org/x/text/unicode/norm"

	"github.com/mmeshcher/clube-madua/internal/model"
)

// PreviewPercent задаёт долю платного контента в процентах, которую видит посетитель без подписки.
const PreviewPercent = 30

// Level описывает уровень доступа к статье или рецепту.
type Level string

const (
	LevelFull    Level = "full"
	LevelPreview Level = "preview"
	LevelLocked  Level = "locked"
)

// Verdict содержит результат проверки доступа к статье или рецепту.
// Percent заполняется только для LevelPreview.
type Verdict struct {
	Level   Level
	Percent int
}

var (
	// Full открывает контент целиком.
	Full = Verdict{Level: LevelFull}
	// Locked скрывает контент. Для статей означает «не найдено», а не пейвол.
	Locked = Verdict{Level: LevelLocked}
)

// PreviewOf возвращает вердикт частичного показа с указанной долей в процентах.
func PreviewOf(percent int) Verdict {
	return Verdict{Level: LevelPreview, Percent: percent}
}

// Reason объясняет, почему у посетителя есть доступ к курсу.
type Reason string

const (
	ReasonNone               Reason = "none"
	ReasonClubMember         Reason = "club_member"
	ReasonIndividualPurchase Reason = "individual_purchase"
)

// CourseAccess содержит результат проверки доступа к курсу.
type CourseAccess struct {
	HasAccess bool
	Reason    Reason
}

// EvaluatePostOrRecipe определяет, что посетитель видит в статье или рецепте.
func EvaluatePostOrRecipe(post model.Post, viewer model.Viewer) Verdict {
	if !post.IsPublished {
		return Locked
	}
	if !post.IsPremium {
		return Full
	}
	if viewer.HasActiveSubscription() {
		return Full
	}
	return PreviewOf(PreviewPercent)
}

// EvaluateCourse определяет доступ к курсу. Членство в клубе проверяется раньше
// отдельной покупки, поэтому при обоих основаниях причиной будет club_member.
func EvaluateCourse(course model.Course, viewer model.Viewer) CourseAccess {
	if !course.IsPremium {
		return CourseAccess{HasAccess: true, Reason: ReasonNone}
	}
	if course.IsInClub && viewer.HasActiveSubscription() {
		return CourseAccess{HasAccess: true, Reason: ReasonClubMember}
	}
	if course.IsStandalone && viewer.HasPurchased(course.ID) {
		return CourseAccess{HasAccess: true, Reason: ReasonIndividualPurchase}
	}
	return CourseAccess{HasAccess: false, Reason: ReasonNone}
}

// HasNoAccessPath сообщает, что платный курс нельзя получить ни через клуб, ни покупкой.
func HasNoAccessPath(course model.Course) bool {
	return course.IsPremium && !course.IsInClub && !course.IsStandalone
}

// Render возвращает видимую часть контента по вердикту и признак того,
// что вместо остатка нужно показать призыв оформить подписку.
func Render(content string, v Verdict) (string, bool) {
	switch v.Level {
	case LevelFull:
		return content, false
	case LevelPreview:
		return Truncate(content, v.Percent), true
	default:
		return "", false
	}
}

// Truncate оставляет первые floor(len*percent/100) символов текста.
// Текст приводится к NFC при любом percent, длина считается в рунах.
// Для NFC-текста результат является префиксом исходной строки.
func Truncate(content string, percent int) string {
	if percent <= 0 {
		return ""
	}
	runes := []rune(norm.NFC.String(content))
	if percent >= 100 {
		return string(runes)
	}
	n := len(runes) * percent / 100
	return string(runes[:n])
}
