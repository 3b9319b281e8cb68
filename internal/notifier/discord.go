package notifier

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/garage-regform-api/internal/models"
)

type Notifier interface {
	NotifyRegistration(user models.User, form models.RegistrationForm, reg models.Registration, total float64, summary []string) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifyRegistration(user models.User, form models.RegistrationForm, reg models.Registration, total float64, summary []string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	status := "registered/updated registration"
	if reg.State == models.RegistrationStateWithdrawn {
		status = "withdrew registration 😢 👎"
	}

	summaryStr := ""
	if len(summary) > 0 {
		summaryStr = fmt.Sprintf("\n%s", strings.Join(summary, "\n"))
	}

	message := fmt.Sprintf("🎉 **Registration Update**\n**User:** %s (<@%s>)\n**Event:** %s\n**Status:** %s\n**Total:** %.2f%s",
		user.Username,
		user.DiscordID,
		form.Event,
		status,
		total,
		summaryStr,
	)

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
