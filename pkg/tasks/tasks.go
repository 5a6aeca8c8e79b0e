package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeProcessLecture = "lecture:process"
	TypeReapStale      = "lectures:reap_stale"
)

type ProcessLectureTaskPayload struct {
	LectureID string
	OwnerID   int64
}

func NewProcessLectureTask(lectureID string, ownerID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessLectureTaskPayload{
		LectureID: lectureID,
		OwnerID:   ownerID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessLecture, payload), nil
}

func NewReapStaleTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeReapStale, nil), nil
}
