package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

var ErrGoalNotFound = errors.New("goal not found")

const goalColumns = `id, user_id, title, target_amount, deadline, achieved, created_at, updated_at`

func scanGoal(scanner interface{ Scan(...any) error }) (models.Goal, error) {
	var g models.Goal
	var deadline sql.NullString
	err := scanner.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &deadline, &g.Achieved, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return models.Goal{}, err
	}
	g.Deadline = deadline.String
	return g, nil
}

func ListGoals(db *sql.DB, userID int64) ([]models.Goal, error) {
	rows, err := db.Query(`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func InsertGoal(db *sql.DB, g *models.Goal) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	res, err := db.Exec(`
		INSERT INTO goals (user_id, title, target_amount, deadline, achieved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Title, g.TargetAmount, g.Deadline, g.Achieved, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func UpdateGoal(db *sql.DB, g *models.Goal) error {
	g.UpdatedAt = time.Now()
	res, err := db.Exec(`
		UPDATE goals SET title = ?, target_amount = ?, deadline = ?, achieved = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		g.Title, g.TargetAmount, g.Deadline, g.Achieved, g.UpdatedAt, g.ID, g.UserID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func DeleteGoal(db *sql.DB, userID, goalID int64) error {
	res, err := db.Exec(`DELETE FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGoalNotFound
	}
	return nil
}
