package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"diffusion_session_bot/databases/sqlite"
	"diffusion_session_bot/discord_bot"
	"diffusion_session_bot/entities"
	"diffusion_session_bot/format_router"
	"diffusion_session_bot/generation_api"
	"diffusion_session_bot/generation_queue"
	"diffusion_session_bot/profile_registry"
	"diffusion_session_bot/repositories"
	"diffusion_session_bot/repositories/profiles"
	"diffusion_session_bot/repositories/session_snapshots"
	"diffusion_session_bot/session_store"
	"diffusion_session_bot/settings_file"
)

// Bot parameters
var (
	guildID      = flag.String("guild", "", "Guild ID. If not passed - bot registers commands globally")
	botToken     = flag.String("token", "", "Bot access token")
	apiHost      = flag.String("host", "", "Host for the generation server API")
	paramsFile   = flag.String("params", "", "Optional YAML file with server parameter defaults, used when the server is unreachable")
	historyLimit = flag.Int("limit", 0, "History display limit. 0 uses the built-in default")
)

func main() {
	flag.Parse()

	if guildID == nil || *guildID == "" {
		log.Fatalf("Guild ID flag is required")
	}

	if botToken == nil || *botToken == "" {
		log.Fatalf("Bot token flag is required")
	}

	if apiHost == nil || *apiHost == "" {
		log.Fatalf("API host flag is required")
	}

	generationAPI, err := generation_api.New(generation_api.Config{
		Host: *apiHost,
	})
	if err != nil {
		log.Fatalf("Failed to create generation API: %v", err)
	}

	serverParams, err := generationAPI.Params()
	if err != nil {
		log.Printf("Could not fetch server params from %s: %v", *apiHost, err)

		if *paramsFile == "" {
			log.Fatalf("No server params available and no params file given")
		}

		serverParams, err = settings_file.Load(*paramsFile)
		if err != nil {
			log.Fatalf("Failed to load server params file: %v", err)
		}

		log.Printf("Loaded server params from %s", *paramsFile)
	}

	ctx := context.Background()

	sqliteDB, err := sqlite.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create sqlite database: %v", err)
	}

	profileRepo, err := profiles.NewRepository(&profiles.Config{DB: sqliteDB})
	if err != nil {
		log.Fatalf("Failed to create profile repository: %v", err)
	}

	snapshotRepo, err := session_snapshots.NewRepository(&session_snapshots.Config{DB: sqliteDB})
	if err != nil {
		log.Fatalf("Failed to create session snapshot repository: %v", err)
	}

	sessionStore, err := session_store.New(session_store.Config{
		ServerParams: serverParams,
		Limit:        *historyLimit,
	})
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}

	restoreSession(ctx, snapshotRepo, sessionStore)

	profileRegistry, err := profile_registry.New(ctx, profile_registry.Config{
		ProfileRepo: profileRepo,
	})
	if err != nil {
		log.Fatalf("Failed to create profile registry: %v", err)
	}

	formatRouter, err := format_router.New(format_router.Config{})
	if err != nil {
		log.Fatalf("Failed to create format router: %v", err)
	}

	generationQueue, err := generation_queue.New(generation_queue.Config{
		GenerationAPI: generationAPI,
		SessionStore:  sessionStore,
		SnapshotRepo:  snapshotRepo,
	})
	if err != nil {
		log.Fatalf("Failed to create generation queue: %v", err)
	}

	bot, err := discord_bot.New(discord_bot.Config{
		BotToken:        *botToken,
		GuildID:         *guildID,
		GenerationQueue: generationQueue,
		SessionStore:    sessionStore,
		ProfileRegistry: profileRegistry,
		FormatRouter:    formatRouter,
	})
	if err != nil {
		log.Fatalf("Error creating Discord bot: %v", err)
	}

	bot.Start()

	log.Println("Gracefully shutting down.")
}

func restoreSession(ctx context.Context, snapshotRepo session_snapshots.Repository, sessionStore session_store.Store) {
	snapshot, err := snapshotRepo.Load(ctx)
	if err != nil {
		if errors.Is(err, &repositories.NotFoundError{}) {
			log.Println("No persisted session found, starting fresh")

			return
		}

		log.Printf("Failed to load persisted session: %v", err)

		return
	}

	if snapshot.Version != entities.SnapshotVersion {
		log.Printf("Persisted session has schema version %d, want %d; starting fresh",
			snapshot.Version, entities.SnapshotVersion)

		return
	}

	err = sessionStore.Restore(*snapshot)
	if err != nil {
		log.Printf("Failed to restore persisted session: %v", err)

		return
	}

	log.Printf("Restored session with %d history entries", len(snapshot.History))
}
