package clock

import (
	"testing"
	"time"
)

func TestParseTime12H(t *testing.T) {
	tests := []struct {
		input      string
		wantHour   int
		wantMinute int
		wantOK     bool
	}{
		{"12:00am", 0, 0, true},
		{"12:30pm", 12, 30, true},
		{"7:05am", 7, 5, true},
		{"7pm", 19, 0, true},
		{"12am", 0, 0, true},
		{"12pm", 12, 0, true},
		{"11:59pm", 23, 59, true},
		{"1:00am", 1, 0, true},
		// Пробелы и регистр игнорируются
		{"7:30 PM", 19, 30, true},
		{"  9 am ", 9, 0, true},
		// Некорректный ввод - не ошибка, а "нет совпадения"
		{"25:00pm", 0, 0, false},
		{"0:30am", 0, 0, false},
		{"13pm", 0, 0, false},
		{"7:60pm", 0, 0, false},
		{"abc", 0, 0, false},
		{"", 0, 0, false},
		{"7:30", 0, 0, false},
		{"pm", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hour, minute, ok := ParseTime12H(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseTime12H(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("ParseTime12H(%q) = (%d, %d), want (%d, %d)",
					tt.input, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestDueInstant(t *testing.T) {
	tests := []struct {
		name    string
		dateStr string
		timeStr string
		want    *time.Time
	}{
		{
			name:    "date with valid time",
			dateStr: "2024-01-02",
			timeStr: "7:30pm",
			want:    timePtr(2024, 1, 2, 19, 30),
		},
		{
			name:    "date without time defaults to 09:00",
			dateStr: "2024-01-02",
			timeStr: "",
			want:    timePtr(2024, 1, 2, 9, 0),
		},
		{
			name:    "malformed time defaults to 09:00",
			dateStr: "2024-03-15",
			timeStr: "25:00pm",
			want:    timePtr(2024, 3, 15, 9, 0),
		},
		{
			name:    "no date means no instant",
			dateStr: "",
			timeStr: "7:30pm",
			want:    nil,
		},
		{
			name:    "garbage date means no instant",
			dateStr: "not-a-date",
			timeStr: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueInstant(tt.dateStr, tt.timeStr)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("DueInstant(%q, %q) = %v, want %v", tt.dateStr, tt.timeStr, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("DueInstant(%q, %q) = %v, want %v", tt.dateStr, tt.timeStr, got, tt.want)
			}
		})
	}
}

// Проверяем, что парсер и резолвер дают согласованный результат
func TestDueInstantRoundTrip(t *testing.T) {
	instant := DueInstant("2024-06-01", "12:00am")
	if instant == nil {
		t.Fatal("expected non-nil instant")
	}
	if instant.Hour() != 0 || instant.Minute() != 0 {
		t.Errorf("12:00am resolved to %02d:%02d, want 00:00", instant.Hour(), instant.Minute())
	}
}

func timePtr(year, month, day, hour, minute int) *time.Time {
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
	return &t
}
