package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/danielstefank/goodwill-alert/pkg/search"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog"
)

const usage = "type '/list', '/add {Name}, {Keywords}[, {MinPrice}[, {MaxPrice}]]', '/remove {ID}', '/run {ID}' or '/results [{ID}]'."

// how many items a chat reply lists
const replyItems = 10

// Bot answers chat commands with the search service
type Bot struct {
	token       string
	chatID      int64
	internalBot *tgbotapi.BotAPI
	service     *search.Service
	log         zerolog.Logger
}

// CreateBot creates a bot. With a non zero chatID only that chat is served.
func CreateBot(token string, chatID int64, service *search.Service, log zerolog.Logger) *Bot {
	bot := new(Bot)
	bot.token = token
	bot.chatID = chatID
	bot.service = service
	bot.log = log
	return bot
}

// Init connects to the bot api
func (b *Bot) Init() error {
	bot, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("could not initialize bot: %w", err)
	}
	b.internalBot = bot
	return nil
}

// API returns the connected bot api, nil before Init
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.internalBot
}

// Start serves updates until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	if b.internalBot == nil {
		return errors.New("bot is not initialized")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.internalBot.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("could not get updates: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() { // ignore any non-command updates
				continue
			}

			chatID := update.Message.Chat.ID
			if b.chatID != 0 && chatID != b.chatID {
				b.log.Warn().Int64("chat_id", chatID).Msg("ignoring command from unknown chat")
				continue
			}

			b.log.Debug().Str("command", update.Message.Command()).Msg("got command")

			go func(command, args string) {
				reply := b.HandleCommand(ctx, command, args)
				if _, err := b.internalBot.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
					b.log.Error().Err(err).Msg("could not send reply")
				}
			}(update.Message.Command(), update.Message.CommandArguments())
		}
	}
}

// HandleCommand executes a command and returns the reply text
func (b *Bot) HandleCommand(ctx context.Context, command, args string) string {
	switch command {
	case "start", "help":
		return usage
	case "list":
		searches, err := b.service.ListSearches()
		if err != nil {
			return "could not list searches"
		}
		return formatSearches(searches)
	case "add":
		spec, ok := getSpecFromArgs(args)
		if !ok {
			return "use add like this '/add {Name}, {Keywords}[, {MinPrice}[, {MaxPrice}]]'"
		}
		id, err := b.service.CreateSearch(spec)
		if errors.Is(err, model.ErrDuplicateName) {
			return fmt.Sprintf("A search named %s already exists", spec.Name)
		}
		if err != nil {
			return fmt.Sprintf("could not add search: %v", err)
		}
		return fmt.Sprintf("Added search %s with ID %d", spec.Name, id)
	case "remove":
		id, ok := parseID(args)
		if !ok {
			return "use remove like this '/remove {ID}'"
		}
		removed, err := b.service.DeleteSearch(id)
		if err != nil {
			return "could not remove search"
		}
		if !removed {
			return "Search not found"
		}
		return fmt.Sprintf("Removed search %d", id)
	case "run":
		id, ok := parseID(args)
		if !ok {
			return "use run like this '/run {ID}'"
		}
		items, err := b.service.RunSearch(ctx, id)
		switch {
		case errors.Is(err, model.ErrNotFound):
			return "Search not found"
		case errors.Is(err, model.ErrAuthRequired):
			return "Marketplace login required"
		case err != nil:
			return fmt.Sprintf("Search failed: %v", err)
		}
		return fmt.Sprintf("Found %d new items\n%s", len(items), formatItems(items))
	case "results":
		var searchID *uint
		if strings.TrimSpace(args) != "" {
			id, ok := parseID(args)
			if !ok {
				return "use results like this '/results [{ID}]'"
			}
			searchID = &id
		}
		items, err := b.service.Results(searchID, replyItems)
		if err != nil {
			return "could not load results"
		}
		if len(items) == 0 {
			return "No results found"
		}
		return formatItems(items)
	default:
		return "I don't know that command"
	}
}

func formatSearches(searches []model.SavedSearch) string {
	if len(searches) == 0 {
		return "No searches try adding one with /add"
	}
	parts := make([]string, 0, len(searches))
	for _, s := range searches {
		parts = append(parts, formatSearch(s))
	}
	return strings.Join(parts, "\n\n")
}

func formatSearch(s model.SavedSearch) string {
	var b strings.Builder
	f := fmt.Sprintf
	b.WriteString(f("Name: %s\n", s.Name))
	b.WriteString(f("Keywords: %s\n", s.Keywords))
	b.WriteString(f("Price: %s - %s\n", formatBound(s.MinPrice, "0"), formatBound(s.MaxPrice, "∞")))
	if s.PickupOnly {
		b.WriteString("Pickup only\n")
	}
	b.WriteString(f("ID: %d", s.ID))

	return b.String()
}

func formatItems(items []model.Item) string {
	parts := make([]string, 0, len(items))
	for i, item := range items {
		if i == replyItems {
			parts = append(parts, fmt.Sprintf("... and %d more", len(items)-replyItems))
			break
		}
		parts = append(parts, formatItem(item))
	}
	return strings.Join(parts, "\n\n")
}

func formatItem(item model.Item) string {
	var b strings.Builder
	f := fmt.Sprintf
	b.WriteString(f("%s\n", item.Title))
	b.WriteString(f("$%.2f\n", item.CurrentPrice))
	b.WriteString(f("%s", item.URL))

	return b.String()
}

func formatBound(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return "$" + strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseID(args string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getSpecFromArgs(args string) (model.SearchSpec, bool) {
	arr := strings.Split(args, ",")

	if len(arr) < 2 || len(arr) > 4 {
		return model.SearchSpec{}, false
	}

	spec := model.SearchSpec{
		Name:     strings.TrimSpace(arr[0]),
		Keywords: strings.TrimSpace(arr[1]),
	}

	prices := make([]*float64, 0, 2)
	for _, raw := range arr[2:] {
		p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return model.SearchSpec{}, false
		}
		prices = append(prices, &p)
	}
	if len(prices) > 0 {
		spec.MinPrice = prices[0]
	}
	if len(prices) > 1 {
		spec.MaxPrice = prices[1]
	}

	if spec.Validate() != nil {
		return model.SearchSpec{}, false
	}

	return spec, true
}
