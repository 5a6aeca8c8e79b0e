package feed

import (
	"fmt"
	"time"

	"github.com/eduncan911/podcast"

	"lecturenotes/internal/models"
)

// Generate renders a user's completed lectures as an RSS feed. Audio files
// are deleted after processing, so items link to the lecture page and carry
// the summary as their description.
func Generate(user *models.User, lectures []models.Lecture, baseURL string) (string, error) {
	p := podcast.New(
		fmt.Sprintf("%s's Lectures", user.TelegramUsername),
		fmt.Sprintf("%s/feed/%s", baseURL, user.FeedUUID),
		"AI-generated study material from recorded lectures.",
		&time.Time{}, &time.Time{},
	)

	for _, lecture := range lectures {
		description := lecture.Title
		if lecture.Summary != nil && *lecture.Summary != "" {
			description = *lecture.Summary
		}

		item := podcast.Item{
			Title:       lecture.Title,
			Description: description,
			Link:        fmt.Sprintf("%s/lectures/%s", baseURL, lecture.ID),
		}
		completedAt := lecture.ProcessingCompletedAt
		if completedAt == nil {
			createdAt := lecture.CreatedAt
			completedAt = &createdAt
		}
		item.PubDate = completedAt

		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}
