package ports

import (
	"github.com/gin-gonic/gin"
)

type MessageHTTPHandler interface {
	CreateMessage(c *gin.Context)
	ListMessages(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type ChannelHTTPHandler interface {
	CreateChannel(c *gin.Context)
	DeleteChannel(c *gin.Context)
}
