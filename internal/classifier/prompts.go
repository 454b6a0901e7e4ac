package classifier

import (
	"fmt"
	"strings"

	"github.com/daniltm/prodbot/internal/pipeline"
)

const taskSystemPrompt = `Вы — опытный менеджер по личной эффективности и высокоуровневый ассистент.
Ваша задача — разобрать описание, выявить один или несколько самостоятельных элементов
и вернуть структурированные данные.`

const thoughtSystemPrompt = "You are a thought analysis assistant."

const taskPromptTemplate = `Верните **JSON-массив** объектов, где каждый объект имеет поля:
- name: Короткое русское название задачи/активности/мероприятия
- sphere_text: Русское название сферы жизни (work, personal, health, learning и т. д.)
- sphere_page_id: id страницы-сферы (см. опции ниже; если подходящего блока нет — это поле НЕ добавлять)
- type:
  • «ChatGPTактивность» — если тип явно не указан (дефолтное значение);
  • «ChatGPTтаск» — если вначале упомянуты слова «задача», «task», «таск»;
  • «ChatGPTмероприятие» — если вначале упомянуто слово «мероприятие».
- project: название проекта или null
- chatGPT_comment:
    * Для «ChatGPTактивность» — строка "—" (анализ не требуется).
    * Для «ChatGPTтаск» — аналитика + конкретные шаги помощи. Структура: 1. СДЕЛАНО: (да/нет — есть ли в пункте 3 готовый вариант). 2. ПРОМПТ: (придумай промпт, который поможет решить задачу, с плейсхолдерами под контекст). 3. ПРЕДЛОЖЕНИЕ: (для простой задачи — готовое решение; для комплексной — прочерк '-').
    * Для «ChatGPTмероприятие» — рекомендации по подготовке (чек-лист, материалы, список вопросов).

Task description:
%s

Time received: %s

### Sphere options
%s

**Rules**
* Несколько элементов — несколько объектов в массиве, строго в исходном порядке.
* Каждый объект должен быть независим и завершён.
* Выбирайте сферу вдумчиво: сопоставляйте смысл описания с Sphere options; при сомнении возьмите ближайшую.
* **name** и **chatGPT_comment** должны быть на русском.
* Итог — валидный JSON-массив **без** кодовых блоков.
* Если элемент один — всё равно возвращайте массив из одного объекта.`

const thoughtPromptTemplate = `Вы — личный мыслительный ассистент. Классифицируйте мысли ниже
по сфере жизни и дайте короткое осмысленное название.

Верните JSON-массив объектов:
- name: Короткое русское название
- sphere_text: Русское название сферы жизни
- sphere_page_id: id страницы-сферы (см. опции ниже; если подходящего блока нет — это поле НЕ добавлять)
- comment: раскрытие мысли / пояснение (1-2 предложения)

### Sphere options
%s

Текст мыслей:
%s

Current time: %s

**Rules**
* Несколько мыслей — несколько объектов в массиве.
* Каждый объект должен быть независим и завершён.
* Выбирайте сферу вдумчиво; при сомнении возьмите ближайшую.
* Итог — валидный JSON-массив **без** кодовых блоков.`

// buildTaskPrompt renders the activity classification prompt. Only the bare
// names go in; timestamps and ratings never reach the model.
func buildTaskPrompt(names []string, timestamp string, opts []pipeline.SphereOption) string {
	var list strings.Builder
	for _, n := range names {
		fmt.Fprintf(&list, "- %s\n", n)
	}
	return fmt.Sprintf(taskPromptTemplate, strings.TrimRight(list.String(), "\n"), timestamp, sphereBlock(opts))
}

func buildThoughtPrompt(text, timestamp string, opts []pipeline.SphereOption) string {
	return fmt.Sprintf(thoughtPromptTemplate, sphereBlock(opts), text, timestamp)
}

func sphereBlock(opts []pipeline.SphereOption) string {
	if len(opts) == 0 {
		return "(нет опций)"
	}
	var b strings.Builder
	for _, o := range opts {
		fmt.Fprintf(&b, "- %s (id: %s) – %s\n", o.Name, o.ID, o.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
