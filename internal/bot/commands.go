package bot

import "strings"

const (
	CommandStart = "/start"
	CommandHelp  = "/help"
)

// commandOf extracts "/cmd" from "/cmd@bot_name payload". Non-command text yields "".
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}
