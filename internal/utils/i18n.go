package utils

import "fmt"

// Server-side strings that end up in dashboard payloads. Russian is the
// product's primary language; English is kept in sync for API consumers.

const DefaultLocale = "ru"

var SupportedLocales = []string{"ru", "en"}

var translations = map[string]map[string]string{
	"ru": {
		"health.ok": "ок",

		"dynamics.week":    "%d нед.",
		"dynamics.current": "Текущая",

		"factor.wellbeing": "Благополучие",
		"factor.burnout":   "Усталость/выгорание",
		"factor.tension":   "Конфликты/напряжение",

		"rec.burnout.issue":             "рост усталости/выгорания",
		"rec.burnout.action":            "Провести 1:1, пересмотреть нагрузку на 7 дней, приоритизировать задачи, добавить время на восстановление.",
		"rec.burnout.action.critical":   "Срочно: провести 1:1 со всеми сотрудниками отдела в течение 2 дней, снять некритичные задачи, согласовать дни восстановления.",
		"rec.tension.issue":             "напряжение в коммуникации",
		"rec.tension.action":            "Сделать короткую ретро-сессию: правила коммуникации, распределение ответственности, снять конфликтные точки.",
		"rec.tension.action.critical":   "Срочно: провести фасилитированную встречу с участием HR, зафиксировать договорённости и ответственных, назначить повторную проверку через неделю.",
		"rec.wellbeing.issue":           "низкий индекс благополучия",
		"rec.wellbeing.action":          "Проверить причины: сроки/ресурсы/контекст задач. Сформировать 2–3 quick wins на ближайшую неделю.",
		"rec.wellbeing.action.critical": "Срочно: разобрать с руководителем отдела сроки и ресурсы, убрать блокеры, вернуться с планом из 2–3 quick wins до конца недели.",

		"notify.zone.title":       "Зона риска: «%s»",
		"notify.zone.description": "Главный фактор: %s. Индекс риска %d из 100.",
		"notify.coverage.title":   "Охват опроса: %d%%",
		"notify.coverage.good":    "Охват за %s достаточен для надёжных выводов.",
		"notify.coverage.low":     "Охват за %s ниже 60%%: включите напоминания или продлите опрос.",

		"export.sheet.metrics":         "Метрики",
		"export.sheet.dynamics":        "Динамика",
		"export.sheet.zones":           "Зоны",
		"export.sheet.recommendations": "Рекомендации",
		"export.sheet.answers":         "Ответы",
	},
	"en": {
		"health.ok": "ok",

		"dynamics.week":    "Week %d",
		"dynamics.current": "Current",

		"factor.wellbeing": "Wellbeing",
		"factor.burnout":   "Fatigue/burnout",
		"factor.tension":   "Conflicts/tension",

		"rec.burnout.issue":             "growing fatigue/burnout",
		"rec.burnout.action":            "Hold 1:1s, review workload for the next 7 days, prioritise tasks, schedule recovery time.",
		"rec.burnout.action.critical":   "Urgent: hold 1:1s with everyone in the department within 2 days, drop non-critical work, agree on recovery days.",
		"rec.tension.issue":             "communication tension",
		"rec.tension.action":            "Run a short retro: communication rules, ownership split, defuse conflict points.",
		"rec.tension.action.critical":   "Urgent: run a facilitated meeting with HR, record agreements and owners, re-check in one week.",
		"rec.wellbeing.issue":           "low wellbeing index",
		"rec.wellbeing.action":          "Check the causes: deadlines, resources, task context. Pick 2–3 quick wins for the coming week.",
		"rec.wellbeing.action.critical": "Urgent: review deadlines and resources with the department lead, remove blockers, come back with 2–3 quick wins by the end of the week.",

		"notify.zone.title":       "Risk zone: %q",
		"notify.zone.description": "Main factor: %s. Risk score %d of 100.",
		"notify.coverage.title":   "Survey coverage: %d%%",
		"notify.coverage.good":    "Coverage over %s is enough for reliable conclusions.",
		"notify.coverage.low":     "Coverage over %s is below 60%%: enable reminders or extend the survey.",

		"export.sheet.metrics":         "Metrics",
		"export.sheet.dynamics":        "Dynamics",
		"export.sheet.zones":           "Zones",
		"export.sheet.recommendations": "Recommendations",
		"export.sheet.answers":         "Answers",
	},
}

// T returns the translated string for key in locale; falls back to Russian.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[DefaultLocale][key]; ok {
		return v
	}
	return key
}

// Tf formats the translated string for key with args.
func Tf(locale, key string, args ...any) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// Days renders a day count, e.g. "14 дней" or "14 days".
func Days(locale string, n int) string {
	if locale == "en" {
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	}
	return fmt.Sprintf("%d %s", n, pluralRU(n, "день", "дня", "дней"))
}

func pluralRU(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%10 == 1 && n%100 != 11:
		return one
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return few
	default:
		return many
	}
}
