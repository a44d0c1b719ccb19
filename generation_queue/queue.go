package generation_queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"diffusion_session_bot/clock"
	"diffusion_session_bot/composite_renderer"
	"diffusion_session_bot/entities"
	"diffusion_session_bot/generation_api"
	"diffusion_session_bot/repositories"
	"diffusion_session_bot/repositories/session_snapshots"
	"diffusion_session_bot/session_store"

	"github.com/bwmarrin/discordgo"
)

const (
	readyPollInterval = 1 * time.Second
	readyPollTimeout  = 5 * time.Minute
)

type queueImpl struct {
	botSession        *discordgo.Session
	generationAPI     generation_api.GenerationAPI
	sessionStore      session_store.Store
	snapshotRepo      session_snapshots.Repository
	compositeRenderer composite_renderer.Renderer
	clock             clock.Clock
	queue             chan *QueueItem
	currentItem       *QueueItem
	mu                sync.Mutex
}

type Config struct {
	GenerationAPI generation_api.GenerationAPI
	SessionStore  session_store.Store
	SnapshotRepo  session_snapshots.Repository
}

func New(cfg Config) (Queue, error) {
	if cfg.GenerationAPI == nil {
		return nil, errors.New("missing generation API")
	}

	if cfg.SessionStore == nil {
		return nil, errors.New("missing session store")
	}

	if cfg.SnapshotRepo == nil {
		return nil, errors.New("missing session snapshot repository")
	}

	compositeRenderer, err := composite_renderer.New(composite_renderer.Config{})
	if err != nil {
		return nil, err
	}

	return &queueImpl{
		generationAPI:     cfg.GenerationAPI,
		sessionStore:      cfg.SessionStore,
		snapshotRepo:      cfg.SnapshotRepo,
		compositeRenderer: compositeRenderer,
		clock:             clock.NewClock(),
		queue:             make(chan *QueueItem, 100),
	}, nil
}

type ItemType int

const (
	ItemTypeTxt2Img ItemType = iota
	ItemTypeReroll
	ItemTypeUpscale
)

type QueueItem struct {
	Patch              entities.ParamsPatch
	Type               ItemType
	HistoryIndex       int // 1-based history position for rerolls/upscales
	DiscordInteraction *discordgo.Interaction
}

func (q *queueImpl) AddGeneration(item *QueueItem) (int, error) {
	q.queue <- item

	linePosition := len(q.queue)

	return linePosition, nil
}

func (q *queueImpl) StartPolling(botSession *discordgo.Session) {
	q.botSession = botSession

	log.Println("Press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	stopPolling := false

	for {
		select {
		case <-stop:
			stopPolling = true
		case <-time.After(1 * time.Second):
			if q.currentItem == nil {
				q.pullNextInQueue()
			}
		}

		if stopPolling {
			break
		}
	}

	log.Printf("Polling stopped...\n")
}

func (q *queueImpl) pullNextInQueue() {
	if len(q.queue) > 0 {
		element := <-q.queue

		q.mu.Lock()
		defer q.mu.Unlock()

		q.currentItem = element

		q.processCurrentItem()
	}
}

func (q *queueImpl) processCurrentItem() {
	go func() {
		defer func() {
			q.mu.Lock()
			defer q.mu.Unlock()

			q.currentItem = nil
		}()

		item := q.currentItem

		response, err := q.submit(item)
		if err != nil {
			log.Printf("Error submitting generation: %v", err)

			q.editInteraction(item, "I'm sorry, but I had a problem submitting your image.")

			return
		}

		q.sessionStore.PushLoading(entities.LoadingItem{Response: *response})

		ready, err := q.awaitReady(item, response)
		if err != nil {
			log.Printf("Error waiting for %q: %v", response.Key(), err)

			// Abandon the job so it doesn't sit in loading forever.
			q.sessionStore.RemoveLoading(response.Key())

			q.editInteraction(item, "I'm sorry, but your image never finished.")

			return
		}

		if !ready {
			return
		}

		q.archiveAndRender(item, response)
	}()
}

// submit translates the queue item into an API call. A plain generation
// merges the item's patch into the txt2img slice first, so the submitted
// parameters and the session agree; rerolls reuse an archived parameter set
// with a fresh seed; upscales feed an archived output key back in.
func (q *queueImpl) submit(item *QueueItem) (*entities.ImageResponse, error) {
	switch item.Type {
	case ItemTypeTxt2Img:
		q.sessionStore.SetTxt2Img(item.Patch)

		snapshot := q.sessionStore.Snapshot()

		return q.generationAPI.Txt2Img(&generation_api.Txt2ImgRequest{
			Params:   snapshot.Txt2Img.Params,
			Model:    snapshot.Model.Model,
			Platform: snapshot.Model.Platform,
		})
	case ItemTypeReroll:
		snapshot := q.sessionStore.Snapshot()

		entry, err := historyAt(snapshot, item.HistoryIndex)
		if err != nil {
			return nil, err
		}

		params := entry.Response.Params
		params.Seed = -1

		return q.generationAPI.Txt2Img(&generation_api.Txt2ImgRequest{
			Params:   params,
			Model:    snapshot.Model.Model,
			Platform: snapshot.Model.Platform,
		})
	case ItemTypeUpscale:
		snapshot := q.sessionStore.Snapshot()

		entry, err := historyAt(snapshot, item.HistoryIndex)
		if err != nil {
			return nil, err
		}

		return q.generationAPI.Upscale(&generation_api.UpscaleRequest{
			Source:   entry.Response.Key(),
			Upscale:  snapshot.Upscale.Upscale,
			Model:    snapshot.Model.Model,
			Platform: snapshot.Model.Platform,
		})
	}

	return nil, fmt.Errorf("unknown queue item type %d", item.Type)
}

func historyAt(snapshot entities.SessionSnapshot, index int) (*entities.HistoryEntry, error) {
	if index < 1 || index > len(snapshot.History) {
		return nil, fmt.Errorf("no history entry at position %d", index)
	}

	entry := snapshot.History[index-1]

	return &entry, nil
}

// awaitReady polls the server's readiness endpoint once a second, mirroring
// each report into the session, until the job is ready or the timeout hits.
func (q *queueImpl) awaitReady(item *QueueItem, response *entities.ImageResponse) (bool, error) {
	key := response.Key()
	deadline := time.Now().Add(readyPollTimeout)

	for time.Now().Before(deadline) {
		<-time.After(readyPollInterval)

		status, err := q.generationAPI.Ready(key)
		if err != nil {
			log.Printf("Error getting readiness for %q: %v", key, err)

			continue
		}

		err = q.sessionStore.SetReady(key, *status)
		if err != nil {
			if errors.Is(err, &repositories.NotFoundError{}) {
				// The loading entry was removed from under us; the job was
				// cancelled.
				return false, nil
			}

			return false, err
		}

		q.editInteraction(item, dreamMessageContent(response, item.DiscordInteraction.Member.User, status.Progress))

		if status.Ready {
			return true, nil
		}
	}

	return false, fmt.Errorf("job %q was not ready after %v", key, readyPollTimeout)
}

func (q *queueImpl) archiveAndRender(item *QueueItem, response *entities.ImageResponse) {
	imageBufs := make([]*bytes.Buffer, 0, len(response.Outputs))

	for _, output := range response.Outputs {
		imageData, err := q.generationAPI.GetOutput(output.Key)
		if err != nil {
			log.Printf("Error fetching output %q: %v", output.Key, err)

			continue
		}

		imageBufs = append(imageBufs, bytes.NewBuffer(imageData))
	}

	entry := entities.HistoryEntry{
		Response:    *response,
		RetrievedAt: q.clock.Now(),
	}

	q.sessionStore.PushHistory(entry)

	q.persistSnapshot()

	if len(imageBufs) == 0 {
		q.editInteraction(item, "I'm sorry, but I couldn't fetch your finished image.")

		return
	}

	compositeImage, err := q.compositeRenderer.TileImages(imageBufs)
	if err != nil {
		log.Printf("Error tiling images: %v", err)

		return
	}

	finishedContent := dreamMessageContent(response, item.DiscordInteraction.Member.User, 1)

	_, err = q.botSession.InteractionResponseEdit(item.DiscordInteraction, &discordgo.WebhookEdit{
		Content: &finishedContent,
		Files: []*discordgo.File{
			{
				ContentType: "image/png",
				Name:        "dream.png",
				Reader:      compositeImage,
			},
		},
		Components: &[]discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Re-roll",
						Style:    discordgo.PrimaryButton,
						CustomID: "dream_reroll",
						Emoji: &discordgo.ComponentEmoji{
							Name: "🎲",
						},
					},
					discordgo.Button{
						Label:    "Upscale",
						Style:    discordgo.SecondaryButton,
						CustomID: "dream_upscale",
						Emoji: &discordgo.ComponentEmoji{
							Name: "⬆️",
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("Error editing interaction: %v", err)
	}
}

// persistSnapshot writes the session through the persistence middleware.
// Failures are logged, not fatal; the in-memory session stays authoritative.
func (q *queueImpl) persistSnapshot() {
	snapshot := q.sessionStore.Snapshot()

	err := q.snapshotRepo.Save(context.Background(), &snapshot)
	if err != nil {
		log.Printf("Error persisting session snapshot: %v", err)
	}
}

func (q *queueImpl) editInteraction(item *QueueItem, content string) {
	_, err := q.botSession.InteractionResponseEdit(item.DiscordInteraction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Printf("Error editing interaction: %v", err)
	}
}

func dreamMessageContent(response *entities.ImageResponse, user *discordgo.User, progress float64) string {
	if progress >= 0 && progress < 1 {
		return fmt.Sprintf("<@%s> asked me to dream \"%s\". Currently dreaming it up for them. Progress: %.0f%%",
			user.ID, response.Params.Prompt, progress*100)
	}

	return fmt.Sprintf("<@%s> asked me to dream \"%s\", here is what I dreamt for them.",
		user.ID, response.Params.Prompt)
}
