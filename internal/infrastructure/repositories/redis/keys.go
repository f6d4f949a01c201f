package redis

import (
	"time"

	"boardchat/internal/core/domain"
)

// keyspace builds every key the repositories use. All keys share one
// prefix so several deployments can share a Redis database.
type keyspace struct {
	prefix string
}

func (k keyspace) schemaVersion() string { return k.prefix + "schema:version" }

func (k keyspace) user(id domain.UserID) string { return k.prefix + "user:" + string(id) }

func (k keyspace) board(id domain.BoardID) string { return k.prefix + "board:" + string(id) }

func (k keyspace) boardMembers(id domain.BoardID) string {
	return k.prefix + "board:" + string(id) + ":members"
}

func (k keyspace) boardChannels(id domain.BoardID) string {
	return k.prefix + "board:" + string(id) + ":channels"
}

func (k keyspace) channel(id domain.ChannelID) string { return k.prefix + "channel:" + string(id) }

// channelHistory is a sorted set of message ids scored by creation time.
func (k keyspace) channelHistory(id domain.ChannelID) string {
	return k.prefix + "channel:" + string(id) + ":messages"
}

func (k keyspace) message(id domain.MessageID) string { return k.prefix + "message:" + string(id) }

// score orders history entries. Microseconds keep the value exact in a
// float64.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}
