package redisx

import "fmt"

const ns = "acaraku:v1"

func KeyEventSummary(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventReviews(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:reviews", ns, eventID)
}

func KeyTokenDenied(jti string) string {
	return fmt.Sprintf("%s:token:denied:%s", ns, jti)
}

func ChannelTransactionsReversed() string {
	return ns + ":transactions:reversed"
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
