package domain

import "time"

type Board struct {
	ID        BoardID   `json:"id"`
	Name      string    `json:"name"`
	AdminID   UserID    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Channel struct {
	ID        ChannelID `json:"id"`
	BoardID   BoardID   `json:"board_id"`
	Name      string    `json:"name"`
	CreatedBy UserID    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
