package generation_queue

import (
	"github.com/bwmarrin/discordgo"
)

type Queue interface {
	AddGeneration(item *QueueItem) (int, error)
	StartPolling(botSession *discordgo.Session)
}
