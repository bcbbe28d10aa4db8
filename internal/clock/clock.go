package clock

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Паттерн 12-часового времени: "7pm", "7:30 pm", "12:05AM" и т.п.
var time12hPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{1,2}))?(am|pm)$`)

var spaces = regexp.MustCompile(`\s+`)

// ParseTime12H разбирает строку 12-часового времени и возвращает часы (0-23)
// и минуты (0-59). Некорректный ввод - это не ошибка: ok=false означает
// "времени нет, используйте значение по умолчанию".
func ParseTime12H(input string) (hour, minute int, ok bool) {
	str := spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), "")
	match := time12hPattern.FindStringSubmatch(str)
	if match == nil {
		return 0, 0, false
	}

	h, _ := strconv.Atoi(match[1])
	m := 0
	if match[2] != "" {
		m, _ = strconv.Atoi(match[2])
	}
	if h < 1 || h > 12 || m < 0 || m > 59 {
		return 0, 0, false
	}

	// Нормализация: 12am -> 0, 12pm -> 12, остальные pm +12
	if match[3] == "am" {
		if h == 12 {
			h = 0
		}
	} else {
		if h != 12 {
			h += 12
		}
	}
	return h, m, true
}

// DueInstant собирает дату "YYYY-MM-DD" и опциональную строку времени в один
// момент в локальной тайм-зоне. Без даты момента нет (nil). Если время
// отсутствует или не разбирается - по умолчанию 09:00.
func DueInstant(dateStr, timeStr string) *time.Time {
	if dateStr == "" {
		return nil
	}
	parts := strings.SplitN(dateStr, "-", 3)
	if len(parts) != 3 {
		return nil
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}

	hour, minute := 9, 0
	if h, m, ok := ParseTime12H(timeStr); ok {
		hour, minute = h, m
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
	return &t
}
