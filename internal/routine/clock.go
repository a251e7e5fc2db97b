package routine

import (
	"time"
)

// Clock задаёт текущее время и часовой пояс, в котором считается «сегодня».
type Clock interface {
	Now() time.Time
}

// ClockFunc позволяет использовать функцию как Clock.
type ClockFunc func() time.Time

// Now возвращает результат вызова функции.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock возвращает настенное время в заданном поясе.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock создаёт часы для пояса loc; nil означает UTC.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

// Now возвращает текущее время в поясе часов.
func (c SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// NowIn возвращает время часов в поясе пользователя tz. Пустой или
// неизвестный пояс оставляет время в поясе часов.
func NowIn(c Clock, tz string) time.Time {
	now := c.Now()
	if tz == "" {
		return now
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return now
	}
	return now.In(loc)
}
