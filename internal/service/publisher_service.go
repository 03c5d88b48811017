package service

import (
	"context"
	"encoding/json"

	"trawell-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	SendProfileSummaryJob(ctx context.Context, ownerKey string) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) SendProfileSummaryJob(ctx context.Context, ownerKey string) error {
	payload, err := json.Marshal(dto.ProfileSummaryJob{OwnerKey: ownerKey})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	return ps.publisher.Publish(ps.topicName, msg)
}
