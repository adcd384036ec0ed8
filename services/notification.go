package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/CrowderSoup/vieira-boards/database"
)

type Channel string

const (
	ChannelSlack    Channel = "slack"
	ChannelWhatsApp Channel = "whatsapp"
)

// Dispatch is one message handed to a Sender.
type Dispatch struct {
	Channel Channel `json:"channel"`
	Address string  `json:"address"`
	Message string  `json:"message"`
}

// Sender delivers a notification. Implementations must not block for long;
// they are called from request handlers.
type Sender interface {
	Send(d Dispatch) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(d Dispatch) error {
	log.Printf("[%s] Enviando para %s: %s", strings.ToUpper(string(d.Channel)), d.Address, d.Message)
	return nil
}

// Notifier decides which notifications a user receives and on which channels.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	if sender == nil {
		sender = LogSender{}
	}
	return &Notifier{sender: sender}
}

// PriorityRaised notifies user when task became high priority, i.e. its
// priority was previous before the change and is high now.
func (n *Notifier) PriorityRaised(user *database.User, task *database.Task, previous database.Priority, change string) []Dispatch {
	if user == nil || task == nil || !user.Notifications.NotifyOnHighPriority {
		return nil
	}
	if previous == database.PriorityHigh || task.Priority != database.PriorityHigh {
		return nil
	}
	msg := fmt.Sprintf("🔔 *Vieira Boards Update* 🔔\nTarefa: *%s*\nAlteração: %s\nPrioridade: %s",
		task.Title, change, strings.ToUpper(string(task.Priority)))
	return n.dispatch(user, msg)
}

// Mentioned notifies user that author mentioned them in a comment on task.
func (n *Notifier) Mentioned(user *database.User, task *database.Task, author, text string) []Dispatch {
	if user == nil || task == nil || !user.Notifications.NotifyOnMentions {
		return nil
	}
	msg := fmt.Sprintf("👤 *Menção em Vieira Boards* 👤\n*%s* mencionou você na tarefa *%s*:\n\"%s\"",
		author, task.Title, text)
	return n.dispatch(user, msg)
}

// MentionsUser reports whether text contains "@<name>", ignoring case.
func MentionsUser(text string, user *database.User) bool {
	if user == nil || strings.TrimSpace(user.Name) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(user.Name))
}

func (n *Notifier) dispatch(user *database.User, msg string) []Dispatch {
	s := user.Notifications
	var out []Dispatch
	if s.SlackEnabled && s.SlackWebhookURL != "" {
		out = append(out, Dispatch{Channel: ChannelSlack, Address: s.SlackWebhookURL, Message: msg})
	}
	if s.WhatsAppEnabled && s.WhatsAppNumber != "" {
		out = append(out, Dispatch{Channel: ChannelWhatsApp, Address: s.WhatsAppNumber, Message: msg})
	}
	for _, d := range out {
		if err := n.sender.Send(d); err != nil {
			log.Printf("Error sending %s notification: %v", d.Channel, err)
		}
	}
	return out
}
