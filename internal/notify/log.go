package notify

import "github.com/rs/zerolog"

// LogNotifier writes notifications to the structured log. The default sink
// when no Telegram credentials are configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(text string) {
	if text == "" {
		return
	}
	n.log.Info().Str("message", text).Msg("notification")
}
