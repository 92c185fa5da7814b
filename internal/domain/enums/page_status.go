package enums

type PageStatus string

const (
	PageStatusActive   PageStatus = "active"
	PageStatusExpired  PageStatus = "expired"
	PageStatusArchived PageStatus = "archived"
)
