package menu

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	NewLesson      = "📚 New lesson"
	ExportSessions = "📥 Export sessions"
)

// ForChat returns the reply keyboard; admins also get the export button.
func ForChat(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	if isAdmin {
		return adminMenu()
	}
	return studentMenu()
}

func studentMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(NewLesson),
		),
	)
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(NewLesson),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ExportSessions),
		),
	)
}
