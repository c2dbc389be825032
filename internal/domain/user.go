package domain

import "time"

// User represents a Telegram user registered through the bot.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Username  string    `db:"username" json:"username"`
	Balance   int64     `db:"balance" json:"balance"`
	Blocked   bool      `db:"blocked" json:"blocked"`
	Deals     int64     `db:"deals" json:"deals"`
	Adverts   int64     `db:"adverts" json:"adverts"`
	UserPic   *string   `db:"user_pic" json:"user_pic"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
