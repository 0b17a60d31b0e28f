package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	serialMin   = 40000
	serialMax   = 50000
	serialEpoch = 25569 // 1970-01-01 のシリアル値
)

var (
	jpMonthDayRe    = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	slashMonthDayRe = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})`)
)

// MonthDay 誕生日文字列から月日を取り出す
// 対応形式: "2月19日" / "2/19" / "2-19" / Excel のシリアル値
func MonthDay(birthday string) (month, day int, ok bool) {
	s := strings.TrimSpace(Fold(birthday))
	if s == "" {
		return 0, 0, false
	}

	if m := jpMonthDayRe.FindStringSubmatch(s); m != nil {
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
	}

	if month == 0 {
		if m := slashMonthDayRe.FindStringSubmatch(s); m != nil {
			month, _ = strconv.Atoi(m[1])
			day, _ = strconv.Atoi(m[2])
		}
	}

	if month == 0 {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > serialMin && serial < serialMax {
			t := time.Unix(int64((serial-serialEpoch)*86400), 0).UTC()
			month = int(t.Month())
			day = t.Day()
		}
	}

	if month < 1 || month > 12 || day < 1 || !validMonthDay(month, day) {
		return 0, 0, false
	}
	return month, day, true
}

// validMonthDay うるう年で実在する月日か（2/29 は有効、2/30 や 4/31 は無効）
func validMonthDay(month, day int) bool {
	t := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return int(t.Month()) == month && t.Day() == day
}

// dateIn year 年の month/day。うるう年以外の 2/29 は 2/28 にする
func dateIn(year, month, day int, loc *time.Location) time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		t = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)
	}
	return t
}

// NextDeliveryDate 誕生日から次に来る配送日を YYYY/MM/DD で返す
// 今年の日付が now より前なら来年にする。解釈できなければ空文字。
func NextDeliveryDate(birthday string, now time.Time) string {
	month, day, ok := MonthDay(birthday)
	if !ok {
		return ""
	}

	target := dateIn(now.Year(), month, day, now.Location())
	if target.Before(now) {
		target = dateIn(now.Year()+1, month, day, now.Location())
	}

	return fmt.Sprintf("%d/%02d/%02d", target.Year(), int(target.Month()), target.Day())
}
