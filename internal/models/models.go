package models

import "time"

type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "scheduled"
	StatusRunning   AuctionStatus = "running"
	StatusClosed    AuctionStatus = "closed"
)

func (s AuctionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusRunning, StatusClosed:
		return true
	}
	return false
}

const (
	ConditionNew  = "new"
	ConditionUsed = "used"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Balance      int64     `db:"balance" json:"balance"`
	Held         int64     `db:"held" json:"held"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Available is the amount the user may still commit to a new bid.
func (u User) Available() int64 {
	return u.Balance - u.Held
}

type Product struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Media       []string  `json:"media"`
	CreatedAt   time.Time `json:"created_at"`
}

type Auction struct {
	ID           string        `db:"id" json:"id"`
	ProductID    string        `db:"product_id" json:"product_id"`
	StartPrice   int64         `db:"start_price" json:"start_price"`
	MinIncrement int64         `db:"min_increment" json:"min_increment"`
	StartAt      time.Time     `db:"start_at" json:"start_at"`
	EndAt        time.Time     `db:"end_at" json:"end_at"`
	Status       AuctionStatus `db:"status" json:"status"`
	CurrentPrice int64         `db:"current_price" json:"current_price"`
	CurrentBidID *string       `db:"current_bid_id" json:"current_bid_id,omitempty"`
	WinnerID     *string       `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	ClosedAt     *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
}

// MinimumBid is the lowest amount the next bid may carry.
func (a Auction) MinimumBid() int64 {
	return a.CurrentPrice + a.MinIncrement
}

// OpenDue reports whether a scheduled auction has reached its start.
func (a Auction) OpenDue(now time.Time) bool {
	return a.Status == StatusScheduled && !now.Before(a.StartAt) && now.Before(a.EndAt)
}

// CloseDue reports whether an unclosed auction has reached its end.
func (a Auction) CloseDue(now time.Time) bool {
	return a.Status != StatusClosed && !now.Before(a.EndAt)
}

// AcceptsBids recomputes due-ness from the clock rather than trusting the stored status alone.
func (a Auction) AcceptsBids(now time.Time) bool {
	return a.Status == StatusRunning && now.Before(a.EndAt)
}

type Bid struct {
	ID        string    `db:"id" json:"id"`
	AuctionID string    `db:"auction_id" json:"auction_id"`
	BidderID  string    `db:"bidder_id" json:"bidder_id"`
	Amount    int64     `db:"amount" json:"amount"`
	PlacedAt  time.Time `db:"placed_at" json:"placed_at"`
}

type ProductSummary struct {
	ID        string   `json:"id"`
	OwnerID   string   `json:"owner_id"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Condition string   `json:"condition"`
	Media     []string `json:"media"`
}

// AuctionView is the denormalized read model of an auction.
type AuctionView struct {
	Auction
	Product        ProductSummary `json:"product"`
	BidCount       int            `json:"bid_count"`
	WinnerUsername *string        `json:"winner_username,omitempty"`
}

type Bidder struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type BidView struct {
	ID       string    `json:"id"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
	Bidder   Bidder    `json:"bidder"`
}

type Purchase struct {
	UserID    string    `db:"user_id" json:"user_id"`
	ProductID string    `db:"product_id" json:"product_id"`
	AuctionID string    `db:"auction_id" json:"auction_id"`
	Amount    int64     `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
