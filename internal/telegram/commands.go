package telegram

import (
	"context"
	"errors"
	"fmt"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/storage"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Moderator is the moderation surface exposed through the bot.
type Moderator interface {
	List(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
	Resolve(ctx context.Context, id uint, status models.ReportStatus, notes string) (*models.Report, error)
}

// Banner sets and lifts temporary bans.
type Banner interface {
	BanUser(ctx context.Context, id uint, duration time.Duration) error
	UnbanUser(ctx context.Context, id uint) error
}

const helpText = `/reports [status] - list reports (pending by default)
/resolve <report_id> <reviewing|resolved|rejected> [notes]
/ban <user_id> [hours] - ban a user, 24h by default
/unban <user_id>`

const defaultBanHours = 24

// CommandBot answers admin commands. Messages from any other chat are ignored.
type CommandBot struct {
	bot         Sender
	adminChatID int64
	moderator   Moderator
	banner      Banner
}

func NewCommandBot(bot Sender, adminChatID int64, m Moderator, b Banner) *CommandBot {
	return &CommandBot{bot: bot, adminChatID: adminChatID, moderator: m, banner: b}
}

// Run consumes updates until ctx is done or the channel closes.
func (c *CommandBot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate executes one command and replies in the admin chat.
func (c *CommandBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat.ID != c.adminChatID {
		return
	}

	reply := c.execute(ctx, msg.Command(), strings.Fields(msg.CommandArguments()))
	if _, err := c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		log.Printf("ERROR: Failed to answer /%s: %v", msg.Command(), err)
	}
}

func (c *CommandBot) execute(ctx context.Context, command string, args []string) string {
	switch command {
	case "reports":
		status := models.ReportPending
		if len(args) > 0 {
			status = models.ReportStatus(args[0])
		}
		return c.listReports(ctx, status)

	case "resolve":
		if len(args) < 2 {
			return helpText
		}
		id, err := parseID(args[0])
		if err != nil {
			return err.Error()
		}
		report, err := c.moderator.Resolve(ctx, id, models.ReportStatus(args[1]), strings.Join(args[2:], " "))
		if err != nil {
			return describe(err)
		}
		return fmt.Sprintf("Report #%d is now %s.", report.ID, report.Status)

	case "ban":
		if len(args) < 1 {
			return helpText
		}
		id, err := parseID(args[0])
		if err != nil {
			return err.Error()
		}
		hours := defaultBanHours
		if len(args) > 1 {
			if hours, err = strconv.Atoi(args[1]); err != nil || hours <= 0 {
				return "hours must be a positive number"
			}
		}
		if err := c.banner.BanUser(ctx, id, time.Duration(hours)*time.Hour); err != nil {
			return describe(err)
		}
		return fmt.Sprintf("User %d banned for %dh.", id, hours)

	case "unban":
		if len(args) < 1 {
			return helpText
		}
		id, err := parseID(args[0])
		if err != nil {
			return err.Error()
		}
		if err := c.banner.UnbanUser(ctx, id); err != nil {
			return describe(err)
		}
		return fmt.Sprintf("User %d unbanned.", id)
	}
	return helpText
}

func (c *CommandBot) listReports(ctx context.Context, status models.ReportStatus) string {
	reports, err := c.moderator.List(ctx, status)
	if err != nil {
		return describe(err)
	}
	if len(reports) == 0 {
		return fmt.Sprintf("No %s reports.", status)
	}

	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "#%d %s by %d: %s\n", r.ID, r.ReportType, r.ReporterID, r.Reason)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad id %q", s)
	}
	return uint(id), nil
}

func describe(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return "Not found."
	}
	return "Error: " + err.Error()
}
