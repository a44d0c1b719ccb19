package discord_bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"diffusion_session_bot/entities"
	"diffusion_session_bot/format_router"
	"diffusion_session_bot/generation_queue"
	"diffusion_session_bot/param_parser"
	"diffusion_session_bot/profile_registry"
	"diffusion_session_bot/repositories"
	"diffusion_session_bot/session_store"

	"github.com/bwmarrin/discordgo"
)

type botImpl struct {
	botSession         *discordgo.Session
	guildID            string
	generationQueue    generation_queue.Queue
	sessionStore       session_store.Store
	profileRegistry    profile_registry.Registry
	formatRouter       format_router.Router
	registeredCommands []*discordgo.ApplicationCommand
}

type Config struct {
	BotToken        string
	GuildID         string
	GenerationQueue generation_queue.Queue
	SessionStore    session_store.Store
	ProfileRegistry profile_registry.Registry
	FormatRouter    format_router.Router
}

func New(cfg Config) (Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("missing bot token")
	}

	if cfg.GuildID == "" {
		return nil, errors.New("missing guild ID")
	}

	if cfg.GenerationQueue == nil {
		return nil, errors.New("missing generation queue")
	}

	if cfg.SessionStore == nil {
		return nil, errors.New("missing session store")
	}

	if cfg.ProfileRegistry == nil {
		return nil, errors.New("missing profile registry")
	}

	if cfg.FormatRouter == nil {
		return nil, errors.New("missing format router")
	}

	botSession, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	botSession.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})

	err = botSession.Open()
	if err != nil {
		return nil, err
	}

	bot := &botImpl{
		botSession:         botSession,
		guildID:            cfg.GuildID,
		generationQueue:    cfg.GenerationQueue,
		sessionStore:       cfg.SessionStore,
		profileRegistry:    cfg.ProfileRegistry,
		formatRouter:       cfg.FormatRouter,
		registeredCommands: make([]*discordgo.ApplicationCommand, 0),
	}

	err = bot.addCommands()
	if err != nil {
		return nil, err
	}

	botSession.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			switch i.ApplicationCommandData().Name {
			case "dream":
				bot.processDreamCommand(s, i)
			case "recover":
				bot.processRecoverCommand(s, i)
			case "profile":
				bot.processProfileCommand(s, i)
			case "history":
				bot.processHistoryCommand(s, i)
			case "reset":
				bot.processResetCommand(s, i)
			default:
				log.Printf("Unknown command '%v'", i.ApplicationCommandData().Name)
			}
		case discordgo.InteractionMessageComponent:
			switch i.MessageComponentData().CustomID {
			case "dream_reroll":
				bot.processDreamReroll(s, i)
			case "dream_upscale":
				bot.processDreamUpscale(s, i)
			default:
				log.Printf("Unknown message component '%v'", i.MessageComponentData().CustomID)
			}
		}
	})

	return bot, nil
}

func (b *botImpl) Start() {
	b.generationQueue.StartPolling(b.botSession)

	err := b.teardown()
	if err != nil {
		log.Printf("Error tearing down bot: %v", err)
	}
}

func (b *botImpl) teardown() error {
	return b.botSession.Close()
}

func (b *botImpl) addCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "dream",
			Description: "Generate an image from the current session parameters",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "The text prompt to dream up",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "negative",
					Description: "What the image should avoid",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "steps",
					Description: "Diffusion steps",
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "cfg",
					Description: "Guidance scale",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "seed",
					Description: "Seed, -1 for random",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "scheduler",
					Description: "Scheduler identifier",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "size",
					Description: "Dimensions as WxH, e.g. 512x768",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "batch",
					Description: "Number of images to generate",
				},
			},
		},
		{
			Name:        "recover",
			Description: "Recover generation parameters from an image, JSON or text file",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "file",
					Description: "The file to read parameters from",
					Required:    true,
				},
			},
		},
		{
			Name:        "profile",
			Description: "Manage parameter profiles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "save",
					Description: "Save the current parameters under a name",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Profile name",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "load",
					Description: "Apply a saved profile to the session",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Profile name",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List saved profiles",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a saved profile",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Profile name",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "history",
			Description: "Show the recent generation history",
		},
		{
			Name:        "reset",
			Description: "Reset every session tab to its defaults",
		},
	}

	for _, command := range commands {
		log.Printf("Adding command '%s'...", command.Name)

		cmd, err := b.botSession.ApplicationCommandCreate(b.botSession.State.User.ID, b.guildID, command)
		if err != nil {
			log.Printf("Error creating '%s' command: %v", command.Name, err)

			return err
		}

		b.registeredCommands = append(b.registeredCommands, cmd)
	}

	return nil
}

func (b *botImpl) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

func (b *botImpl) processDreamCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options

	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}

	patch := entities.ParamsPatch{}
	prompt := ""

	if option, ok := optionMap["prompt"]; ok {
		prompt = option.StringValue()
		patch.Prompt = &prompt
	}

	if option, ok := optionMap["negative"]; ok {
		negative := option.StringValue()
		patch.NegativePrompt = &negative
	}

	if option, ok := optionMap["steps"]; ok {
		steps := int(option.IntValue())
		patch.Steps = &steps
	}

	if option, ok := optionMap["cfg"]; ok {
		cfg := option.FloatValue()
		patch.CfgScale = &cfg
	}

	if option, ok := optionMap["seed"]; ok {
		seed := option.IntValue()
		patch.Seed = &seed
	}

	if option, ok := optionMap["scheduler"]; ok {
		scheduler := option.StringValue()
		patch.Scheduler = &scheduler
	}

	if option, ok := optionMap["size"]; ok {
		widthText, heightText, found := strings.Cut(option.StringValue(), "x")
		if found {
			width, widthErr := strconv.Atoi(strings.TrimSpace(widthText))
			height, heightErr := strconv.Atoi(strings.TrimSpace(heightText))

			if widthErr == nil && heightErr == nil {
				patch.Width = &width
				patch.Height = &height
			}
		}
	}

	if option, ok := optionMap["batch"]; ok {
		batchSize := int(option.IntValue())
		patch.BatchSize = &batchSize
	}

	position, queueError := b.generationQueue.AddGeneration(&generation_queue.QueueItem{
		Patch:              patch,
		Type:               generation_queue.ItemTypeTxt2Img,
		DiscordInteraction: i.Interaction,
	})
	if queueError != nil {
		log.Printf("Error adding generation to queue: %v\n", queueError)
	}

	b.respond(s, i, fmt.Sprintf(
		"I'm dreaming something up for you. You are currently #%d in line.\n<@%s> asked me to dream \"%s\".",
		position, i.Member.User.ID, prompt))
}

func (b *botImpl) processRecoverCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	var attachment *discordgo.MessageAttachment

	for _, option := range data.Options {
		if option.Type == discordgo.ApplicationCommandOptionAttachment {
			attachment = data.Resolved.Attachments[option.Value.(string)]
		}
	}

	if attachment == nil {
		b.respond(s, i, "I couldn't find an attachment on that command.")

		return
	}

	fileData, err := downloadAttachment(attachment.URL)
	if err != nil {
		log.Printf("Error downloading attachment %q: %v", attachment.Filename, err)

		b.respond(s, i, "I couldn't download that file.")

		return
	}

	patch, err := b.formatRouter.RecoverFromFile(attachment.Filename, fileData)
	if err != nil {
		if errors.Is(err, &param_parser.MalformedDocumentError{}) {
			b.respond(s, i, fmt.Sprintf("That file looks like JSON but doesn't parse: %v", err))

			return
		}

		log.Printf("Error recovering parameters from %q: %v", attachment.Filename, err)

		b.respond(s, i, "I couldn't read that file.")

		return
	}

	if patch.IsEmpty() {
		b.respond(s, i, "I didn't find any generation parameters in that file.")

		return
	}

	b.sessionStore.SetTxt2Img(patch)

	b.respond(s, i, "Recovered parameters: "+describePatch(patch))
}

func (b *botImpl) processProfileCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	subcommand := options[0]

	name := ""
	if len(subcommand.Options) > 0 {
		name = subcommand.Options[0].StringValue()
	}

	ctx := context.Background()

	switch subcommand.Name {
	case "save":
		snapshot := b.sessionStore.Snapshot()

		err := b.profileRegistry.Save(ctx, entities.Profile{
			Name:   name,
			Params: snapshot.Txt2Img.Params,
		})
		if err != nil {
			log.Printf("Error saving profile %q: %v", name, err)

			b.respond(s, i, "I couldn't save that profile.")

			return
		}

		b.respond(s, i, fmt.Sprintf("Saved the current parameters as \"%s\".", name))
	case "load":
		profile, err := b.profileRegistry.Apply(name)
		if err != nil {
			if errors.Is(err, &repositories.NotFoundError{}) {
				b.respond(s, i, fmt.Sprintf("There is no profile named \"%s\".", name))

				return
			}

			log.Printf("Error applying profile %q: %v", name, err)

			b.respond(s, i, "I couldn't load that profile.")

			return
		}

		b.sessionStore.SetTxt2Img(entities.PatchOf(profile.Params))

		b.respond(s, i, fmt.Sprintf("Applied profile \"%s\": %s", name, describePatch(entities.PatchOf(profile.Params))))
	case "list":
		var names []string

		for profile := range b.profileRegistry.List() {
			names = append(names, profile.Name)
		}

		if len(names) == 0 {
			b.respond(s, i, "There are no saved profiles yet.")

			return
		}

		b.respond(s, i, "Saved profiles: "+strings.Join(names, ", "))
	case "remove":
		err := b.profileRegistry.Remove(ctx, name)
		if err != nil {
			log.Printf("Error removing profile %q: %v", name, err)

			b.respond(s, i, "I couldn't remove that profile.")

			return
		}

		b.respond(s, i, fmt.Sprintf("Removed profile \"%s\".", name))
	}
}

func (b *botImpl) processHistoryCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	snapshot := b.sessionStore.Snapshot()

	if len(snapshot.History) == 0 {
		b.respond(s, i, "The history is empty. Dream something up first!")

		return
	}

	var lines []string

	for index, entry := range snapshot.History {
		lines = append(lines, fmt.Sprintf("%d. \"%s\" (seed %d, %dx%d)",
			index+1,
			entry.Response.Params.Prompt,
			entry.Response.Params.Seed,
			entry.Response.Size.Width,
			entry.Response.Size.Height))
	}

	b.respond(s, i, "Recent generations:\n"+strings.Join(lines, "\n"))
}

func (b *botImpl) processResetCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.sessionStore.ResetAll()

	b.respond(s, i, "Every tab is back to its defaults.")
}

func (b *botImpl) processDreamReroll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	position, queueError := b.generationQueue.AddGeneration(&generation_queue.QueueItem{
		Type:               generation_queue.ItemTypeReroll,
		HistoryIndex:       1,
		DiscordInteraction: i.Interaction,
	})
	if queueError != nil {
		log.Printf("Error adding generation to queue: %v\n", queueError)
	}

	b.respond(s, i, fmt.Sprintf("I'm re-dreaming that for you... You are currently #%d in line.", position))
}

func (b *botImpl) processDreamUpscale(s *discordgo.Session, i *discordgo.InteractionCreate) {
	position, queueError := b.generationQueue.AddGeneration(&generation_queue.QueueItem{
		Type:               generation_queue.ItemTypeUpscale,
		HistoryIndex:       1,
		DiscordInteraction: i.Interaction,
	})
	if queueError != nil {
		log.Printf("Error adding generation to queue: %v\n", queueError)
	}

	b.respond(s, i, fmt.Sprintf("I'm upscaling that for you... You are currently #%d in line.", position))
}

func downloadAttachment(url string) ([]byte, error) {
	response, err := http.Get(url)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading attachment", response.StatusCode)
	}

	return io.ReadAll(response.Body)
}

// describePatch lists only the recovered fields, in the order they appear
// in the parameter set.
func describePatch(patch entities.ParamsPatch) string {
	var parts []string

	if patch.Prompt != nil {
		parts = append(parts, fmt.Sprintf("prompt \"%s\"", *patch.Prompt))
	}

	if patch.NegativePrompt != nil {
		parts = append(parts, fmt.Sprintf("negative \"%s\"", *patch.NegativePrompt))
	}

	if patch.Steps != nil {
		parts = append(parts, fmt.Sprintf("steps %d", *patch.Steps))
	}

	if patch.CfgScale != nil {
		parts = append(parts, fmt.Sprintf("cfg %g", *patch.CfgScale))
	}

	if patch.Seed != nil {
		parts = append(parts, fmt.Sprintf("seed %d", *patch.Seed))
	}

	if patch.Scheduler != nil {
		parts = append(parts, fmt.Sprintf("scheduler %s", *patch.Scheduler))
	}

	if patch.Width != nil && patch.Height != nil {
		parts = append(parts, fmt.Sprintf("size %dx%d", *patch.Width, *patch.Height))
	}

	if patch.BatchSize != nil {
		parts = append(parts, fmt.Sprintf("batch %d", *patch.BatchSize))
	}

	if patch.Eta != nil {
		parts = append(parts, fmt.Sprintf("eta %g", *patch.Eta))
	}

	return strings.Join(parts, ", ")
}
