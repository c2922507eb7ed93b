package bot

import "github.com/m3rciful/datepoll/internal/pollstore"

// User-facing texts.
const (
	TextGreeting       = "🎲 Привет! Выбери даты для опроса о следующей игре:"
	TextCalendar       = "📅 Выберите даты для опроса:"
	TextReset          = "🔄 Выбранные даты сброшены."
	TextNeedTwoDates   = "❌ Нужно выбрать минимум 2 даты!"
	TextTooManyDates   = "❌ В опросе может быть не больше %d дат."
	TextTitlePrompt    = "📝 Введите название опроса, например:\n\n\"Покорение Северной горы. Когда играем?\""
	TextTitlePholder   = "Название опроса"
	TextEmptyTitle     = "Введите название!"
	TextChooseAction   = "Выберите действие:"
	TextPollCreated    = "✅ Опрос «%s» создан!"
	TextPublishFailed  = "⚠️ Не удалось отправить опрос. Попробуйте ещё раз."
	TextChatID         = "ID этого чата: %d"
	TextSessions       = "Активных сессий: %d"
	TextBadMonth       = "Не понял месяц. Пример: /calendar 2025-10 или /calendar 10.2025"
	TextUnknown        = "Не понимаю. Наберите /help, чтобы увидеть команды."
	TextUnknownButton  = "Кнопка устарела"
	TextTallyButton    = "📊 Подбить результат"
	TextCancelButton   = "❌ Отменить опрос"
	TextPollNotFound   = "Опрос не найден"
	TextNotPollAuthor  = "Только автор опроса может это сделать"
	TextPollNotOpen    = "Опрос уже закрыт"
	TextPollCancelled  = "Опрос отменён"
	TextPollFailed     = "Не получилось, попробуйте позже"
	TextResultsHeader  = "📊 Итоги опроса «%s»"
	TextResultsVoters  = "Проголосовало: %d"
	TextResultsNoVotes = "Никто не проголосовал."
	TextNoPolls        = "У вас пока нет опросов."
	TextPollsHeader    = "🗂 Ваши последние опросы:"
)

// TextHelp lists the public commands.
const TextHelp = "🧭 Команды:\n" +
	"/start — запустить бота для выбора дат\n" +
	"/calendar — открыть календарь (можно указать месяц: /calendar 2025-10)\n" +
	"/reset — сбросить даты\n" +
	"/polls — мои опросы\n" +
	"/help — эта справка"

// Command menu descriptions.
const (
	DescStart    = "Назначить даты"
	DescCalendar = "Открыть календарь"
	DescReset    = "Сбросить выбранные даты"
	DescHelp     = "Показать справку"
	DescPolls    = "Мои опросы"
	DescGetID    = "Показать ID чата"
	DescSessions = "Активные сессии"
)

var statusLabels = map[pollstore.Status]string{
	pollstore.StatusOpen:      "открыт",
	pollstore.StatusClosed:    "закрыт",
	pollstore.StatusCancelled: "отменён",
}
