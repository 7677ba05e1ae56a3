package bot

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

func btn(text, data string) tele.InlineButton {
	return tele.InlineButton{Text: text, Data: data}
}

func row(btns ...tele.InlineButton) []tele.InlineButton {
	return btns
}

func inlineKeyboard(rows ...[]tele.InlineButton) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// callbackID extracts the numeric suffix of payloads like "dep_17".
func callbackID(data, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
