// Package model содержит доменные сущности платформы Клуб Мадуа.
package model

import (
	"strings"
	"time"
)

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	IsAdmin      bool
	Timezone     string
	CreatedAt    time.Time
}

// SubscriptionStatus описывает состояние подписки на клуб.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionInactive SubscriptionStatus = "INACTIVE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionDemo     SubscriptionStatus = "DEMO"
)

// IsValid сообщает, является ли статус одним из известных значений.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionInactive, SubscriptionCanceled, SubscriptionPastDue, SubscriptionDemo:
		return true
	default:
		return false
	}
}

// ParseSubscriptionStatus разбирает строку статуса. Неизвестные значения
// считаются INACTIVE, чтобы ошибка в данных не открывала платный контент.
func ParseSubscriptionStatus(s string) SubscriptionStatus {
	status := SubscriptionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return SubscriptionInactive
	}
	return status
}

// Viewer описывает того, кто смотрит контент: статус подписки и купленные курсы.
// Анонимный посетитель представлен нулевым UserID и статусом INACTIVE.
type Viewer struct {
	UserID             int64
	Status             SubscriptionStatus
	PurchasedCourseIDs map[int64]struct{}
}

// AnonymousViewer возвращает посетителя без подписки и покупок.
func AnonymousViewer() Viewer {
	return Viewer{Status: SubscriptionInactive}
}

// HasActiveSubscription сообщает, действует ли подписка на клуб.
func (v Viewer) HasActiveSubscription() bool {
	return v.Status == SubscriptionActive
}

// HasPurchased сообщает, купил ли посетитель курс отдельно.
func (v Viewer) HasPurchased(courseID int64) bool {
	_, ok := v.PurchasedCourseIDs[courseID]
	return ok
}

// ContentKind различает статьи и рецепты.
type ContentKind string

const (
	ContentPost   ContentKind = "post"
	ContentRecipe ContentKind = "recipe"
)

// Category описывает рубрику статей и рецептов.
type Category struct {
	ID   int64
	Name string
}

// Post описывает статью или рецепт каталога.
type Post struct {
	ID          int64
	Slug        string
	Title       string
	Kind        ContentKind
	Content     string
	CategoryID  *int64
	IsPremium   bool
	IsPublished bool
	CreatedAt   time.Time
}

// Course описывает видеокурс. Цена хранится в сентаво.
type Course struct {
	ID           int64
	Title        string
	Description  string
	IsPremium    bool
	IsPublished  bool
	IsInClub     bool
	IsStandalone bool
	PriceCents   *int64
	CreatedAt    time.Time
}

// Lesson описывает урок курса.
type Lesson struct {
	ID       int64
	CourseID int64
	Title    string
	Order    int
}

// CourseProgress содержит долю пройденных уроков курса.
type CourseProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Ratio возвращает долю пройденных уроков от 0 до 1. Курс без уроков даёт 0.
func (p CourseProgress) Ratio() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Comment описывает комментарий пользователя к статье.
type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Login     string
	Body      string
	CreatedAt time.Time
}

// Archetype описывает категорию задачи распорядка.
type Archetype string

const (
	ArchetypeKing    Archetype = "KING"
	ArchetypeWarrior Archetype = "WARRIOR"
	ArchetypeMage    Archetype = "MAGE"
)

// IsValid сообщает, является ли архетип одним из трёх известных.
func (a Archetype) IsValid() bool {
	switch a {
	case ArchetypeKing, ArchetypeWarrior, ArchetypeMage:
		return true
	default:
		return false
	}
}

// RoutineTask описывает ежедневную задачу распорядка пользователя.
type RoutineTask struct {
	ID           int64
	UserID       int64
	Title        string
	Archetype    Archetype
	Points       int
	Order        int
	BeforeRitual *string
	AfterRitual  *string
	CompletedAt  *time.Time
}
