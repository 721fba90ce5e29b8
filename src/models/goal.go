package models

import "time"

// Goal is a financial target tracked against the owner's balance.
type Goal struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	TargetAmount float64   `json:"target_amount"`
	Deadline     string    `json:"deadline,omitempty"` // YYYY-MM-DD, optional
	Achieved     bool      `json:"achieved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GoalProgress pairs a goal with its completion relative to the balance.
type GoalProgress struct {
	Goal
	CurrentAmount float64 `json:"current_amount"`
	Percent       float64 `json:"percent"`
}
