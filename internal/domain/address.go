package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Deterministic addressing: record IDs are UUIDv5 digests of stable
// identity fields, so any party can derive the address of an event, bid
// or ticket without an index, and the one-bid-per-bidder rule is enforced
// by the primary key rather than a scan.
var (
	nsEvent    = uuid.MustParse("a1f2e9c4-6b1d-5e58-9f3a-2d7c41a90b11")
	nsBid      = uuid.MustParse("b4c8d2f1-93a7-5c06-8e54-7f0b62c3da22")
	nsTicket   = uuid.MustParse("c7e3a5b8-d049-5b74-a1c2-9e8f53d1ab33")
	nsEscrow   = uuid.MustParse("d2a9c6e1-4f73-5a28-b0d5-1c6e84f2bc44")
	nsProceeds = uuid.MustParse("e5b1d8f4-7a26-5c91-83e0-4d9a27b5cd55")
)

// EventID derives the event address from the organizer, the auction
// start and the metadata reference.
func EventID(organizer uuid.UUID, auctionStartTime int64, metadataURL string) uuid.UUID {
	data := make([]byte, 0, 16+8+len(metadataURL))
	data = append(data, organizer[:]...)
	data = binary.BigEndian.AppendUint64(data, uint64(auctionStartTime))
	data = append(data, metadataURL...)
	return uuid.NewSHA1(nsEvent, data)
}

// BidID derives the bid address from (event, bidder).
func BidID(event, bidder uuid.UUID) uuid.UUID {
	data := make([]byte, 0, 32)
	data = append(data, event[:]...)
	data = append(data, bidder[:]...)
	return uuid.NewSHA1(nsBid, data)
}

// TicketID derives the ticket address from (event, owner).
func TicketID(event, owner uuid.UUID) uuid.UUID {
	data := make([]byte, 0, 32)
	data = append(data, event[:]...)
	data = append(data, owner[:]...)
	return uuid.NewSHA1(nsTicket, data)
}

// EscrowAccountID derives the event-scoped account that holds escrowed
// bid funds until award or refund.
func EscrowAccountID(event uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(nsEscrow, event[:])
}

// ProceedsAccountID derives the account credited with the organizer's
// sale proceeds at settlement.
func ProceedsAccountID(event uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(nsProceeds, event[:])
}
