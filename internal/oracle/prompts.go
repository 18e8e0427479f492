package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SblYMblK/FitRose/internal/model"
)

const estimateSystemPrompt = "Ты — внимательный русскоязычный нутрициолог. Отвечай только строгим JSON без комментариев."

const estimatePromptTemplate = `Ты — внимательный нутрициолог, который ведёт дружелюбный дневник питания клиента.
Проанализируй описание блюда и оцени общую калорийность, белки, жиры и углеводы (в граммах).
Ответь строго в формате JSON с ключами: calories, protein, fat, carbs, notes, items (массив объектов с полями name, calories, protein, fat, carbs).
В поле notes сначала коротко опиши блюдо или набор продуктов, затем добавь рекомендации или важные уточнения.
Если каких-то данных нет, сделай аккуратную оценку и расскажи об этом в notes.
Описание пользователя: %s`

const visionSystemPrompt = "Ты — русскоязычный нутрициолог, который анализирует фото блюд. Всегда отвечай строгим JSON."

const visionPromptSuffix = "Сформируй строгий JSON с полями calories, protein, fat, carbs, notes, items. В notes сначала опиши, что изображено на фото, затем добавь выводы."

const refineSystemPrompt = "Ты — внимательный русскоязычный нутрициолог. Уточняешь ранее сделанную оценку блюда по замечаниям клиента. Отвечай только строгим JSON без комментариев."

const refinePromptTemplate = `Клиент уточняет записанный прием пищи.
Исходное описание блюда: %s
Текущая оценка в формате JSON:
%s
Замечания клиента (в порядке поступления):
%s
Пересчитай оценку с учетом всех замечаний клиента.
Ответь строго в формате JSON с ключами: calories, protein, fat, carbs, notes, items (массив объектов с полями name, calories, protein, fat, carbs).`

const summarySystemPrompt = "Ты — поддерживающий русскоязычный нутрициолог. Говори только по-русски и возвращай строгий JSON."

const summaryPromptTemplate = `Ты — вдохновляющий нутрициолог и коуч здорового образа жизни.
У клиента дневная цель %.0f ккал и ориентиры по макроэлементам:
- Белки: %.0f г
- Жиры: %.0f г
- Углеводы: %.0f г

Фактически за день получено:
- Калории: %.0f ккал
- Белки: %.0f г
- Жиры: %.0f г
- Углеводы: %.0f г

Сформулируй короткий анализ (до 120 слов) и конкретные рекомендации на завтра.
Верни JSON с ключами summary и recommendations. Пиши только по-русски.`

func estimatePrompt(description string) string {
	return fmt.Sprintf(estimatePromptTemplate, description)
}

func visionPrompt(description string) string {
	d := strings.TrimSpace(description)
	if d == "" {
		return visionPromptSuffix
	}
	return d + "\n\n" + visionPromptSuffix
}

func refinePrompt(corrections string, previous model.NutritionEstimate, description string) string {
	prev, err := json.Marshal(previous)
	if err != nil {
		prev = []byte("{}")
	}
	if strings.TrimSpace(description) == "" {
		description = "(описание не задано, блюдо было на фото)"
	}
	return fmt.Sprintf(refinePromptTemplate, description, prev, corrections)
}

func summaryPrompt(target, actual model.DayTotals) string {
	return fmt.Sprintf(summaryPromptTemplate,
		target.Calories, target.ProteinG, target.FatG, target.CarbG,
		actual.Calories, actual.ProteinG, actual.FatG, actual.CarbG,
	)
}
