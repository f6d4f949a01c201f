package domain

import "time"

type Session struct {
	ID          SessionID
	Identity    Identity
	ConnectedAt time.Time
}
