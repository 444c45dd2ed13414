package line

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"shareminder/internal/pkg/logger"
)

// Client wraps the linebot.Client as a share client: content handed to it
// is pushed to the chat configured via LINE_SHARE_TO.
type Client struct {
	bot     *linebot.Client
	shareTo string
	log     logger.Logger
}

var (
	lineClientInstance *Client
	once               sync.Once
)

// NewClient creates a new singleton instance of the LINE share client.
// It reads credentials and the destination chat from environment variables.
func NewClient(log logger.Logger) *Client {
	once.Do(func() {
		channelSecret := os.Getenv("CHANNEL_SECRET")
		channelToken := os.Getenv("CHANNEL_ACCESS_TOKEN")
		shareTo := os.Getenv("LINE_SHARE_TO")

		if channelSecret == "" || channelToken == "" || shareTo == "" {
			log.Error("🔴 ERROR: CHANNEL_SECRET, CHANNEL_ACCESS_TOKEN and LINE_SHARE_TO environment variables must be set", nil)
			os.Exit(1)
		}

		bot, err := linebot.New(channelSecret, channelToken)
		if err != nil {
			log.Error("🔴 ERROR: Failed to create LINE Bot client", err)
			os.Exit(1)
		}
		log.Info("Successfully created LINE share client.")
		lineClientInstance = &Client{
			bot:     bot,
			shareTo: shareTo,
			log:     log,
		}
	})
	return lineClientInstance
}

// Share pushes the reminder content to the configured chat. A photo
// reference that is an https URL is sent as an image message; anything
// else (local handles the LINE API cannot fetch) is appended as text.
func (c *Client) Share(ctx context.Context, photoReference *string, title, description string) error {
	text := title
	if description != "" {
		text = title + "\n" + description
	}

	messages := []linebot.SendingMessage{}
	if photoReference != nil && strings.HasPrefix(*photoReference, "https://") {
		messages = append(messages, linebot.NewImageMessage(*photoReference, *photoReference))
	} else if photoReference != nil {
		text = text + "\n" + *photoReference
	}
	messages = append(messages, linebot.NewTextMessage(text))

	if _, err := c.bot.PushMessage(c.shareTo, messages...).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("LINE push failed: %w", err)
	}
	c.log.Debug(fmt.Sprintf("Shared %q to LINE chat %s", title, c.shareTo))
	return nil
}
