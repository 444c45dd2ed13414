package constant

// Platform identifies a social platform a reminder's content can be shared to.
type Platform string

const (
	// PlatformLine shares via a LINE push message.
	PlatformLine Platform = "line"
	// PlatformDiscord shares via a Discord channel webhook.
	PlatformDiscord Platform = "discord"
)

func (p Platform) String() string {
	return string(p)
}
