package appointment

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	ticketSuffixMin = 1000
	ticketSuffixMax = 9999
)

// TicketNumber formats APT-<date without dashes>-<suffix>.
func TicketNumber(date string, suffix int) string {
	return fmt.Sprintf("APT-%s-%04d", strings.ReplaceAll(date, "-", ""), suffix)
}

// NewTicketNumber picks a random four digit suffix. Numbers are not unique:
// two bookings on the same date collide with probability 1/9000.
func NewTicketNumber(date string) string {
	return TicketNumber(date, ticketSuffixMin+rand.Intn(ticketSuffixMax-ticketSuffixMin+1))
}
